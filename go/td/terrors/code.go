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

package terrors

// code categorizes an error so that callers can react to the class of
// failure without matching on message strings. The values follow the
// canonical RPC status codes.
type code int

const (
	// CodeOK means no error.
	CodeOK code = iota

	// CodeUnknown is used for errors created outside this package.
	CodeUnknown

	// CodeInvalidArgument indicates the caller specified an invalid argument.
	CodeInvalidArgument

	// CodeDeadlineExceeded means the operation timed out. A timeout is never
	// a safe condition to retry blindly: the remote side may still be working
	// on the request, or may be overloaded.
	CodeDeadlineExceeded

	// CodeResourceExhausted indicates a resource (e.g. a connection pool)
	// has run out of capacity.
	CodeResourceExhausted

	// CodeFailedPrecondition indicates the system is not in a state required
	// for the operation.
	CodeFailedPrecondition

	// CodeAborted indicates the operation was aborted by the caller.
	CodeAborted

	// CodeInternal means an invariant expected by the system was broken.
	CodeInternal

	// CodeUnavailable indicates a transient transport-level failure. The
	// operation may be safely retried on a fresh connection.
	CodeUnavailable
)

func (c code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeDeadlineExceeded:
		return "deadline exceeded"
	case CodeResourceExhausted:
		return "resource exhausted"
	case CodeFailedPrecondition:
		return "failed precondition"
	case CodeAborted:
		return "aborted"
	case CodeInternal:
		return "internal"
	case CodeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
