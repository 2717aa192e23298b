/*
Copyright 2023 The Tundra Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rpcclient

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/tundradb/tundra/go/td/log"
	"github.com/tundradb/tundra/go/td/terrors"
)

// Call borrows a connection to addr, invokes op on it, and retries on
// transport-level failures with a freshly opened connection, up to
// retryTimes attempts in total.
//
// A failure whose root cause is a timeout is never retried: the remote may
// simply be slow or overloaded, and blind retry would amplify the load.
// Non-transport errors are application errors and propagate immediately.
//
// On the way out, the connection goes back to the pool if it is still
// usable, and is invalidated otherwise.
func Call[T any](ctx context.Context, cp *ClientPool, addr string, timeout time.Duration, retryTimes int, op func(Conn) (T, error)) (T, error) {
	var zero T

	conn, err := cp.Borrow(ctx, addr, timeout)
	if err != nil {
		return zero, err
	}

	connValid := false
	defer func() {
		if connValid {
			cp.Return(addr, conn)
		} else {
			cp.Invalidate(addr, conn)
		}
	}()

	for i := 0; i < retryTimes; i++ {
		result, err := op(conn)
		if err == nil {
			connValid = true
			return result, nil
		}
		if !isTransportError(err) {
			// Application-level failure. The connection itself may be
			// fine, but we cannot know what state op left it in.
			return zero, err
		}

		log.Warningf("rpc call to %v failed, retried: %d, err: %v", addr, i, err)

		// The pool may have handed out a stale connection, so a transport
		// failure is worth one reopen per attempt. Timeouts are not.
		if isTimeout(err) || i == retryTimes-1 {
			return zero, err
		}
		fresh, reopenErr := cp.Reopen(addr, conn, timeout)
		if reopenErr != nil {
			return zero, err
		}
		conn = fresh
	}

	return zero, terrors.Errorf(terrors.CodeInternal, "rpc call to %v made no attempts (retryTimes=%d)", addr, retryTimes)
}

// isTransportError reports whether err is a transport-level failure, the
// only class of failure that justifies a retry on a new connection.
func isTransportError(err error) bool {
	if terrors.Code(err) == terrors.CodeUnavailable {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isTimeout digs for a timeout anywhere in the error chain.
func isTimeout(err error) bool {
	if terrors.Code(err) == terrors.CodeDeadlineExceeded {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
