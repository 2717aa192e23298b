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

// Package rpcclient pools client connections per remote address and wraps
// calls with transport-failure retry. It carries the metadata traffic of
// the system; the plan transformation engine never goes through here.
package rpcclient

import (
	"context"
	"sync"
	"time"

	"github.com/tundradb/tundra/go/pools"
	"github.com/tundradb/tundra/go/td/terrors"
)

// Conn is one client connection to a remote service. Implementations wrap
// the concrete transport.
type Conn interface {
	// Close shuts the connection down. It must be safe to call on an
	// already-broken connection.
	Close()
}

// Dialer opens a new connection to addr. The timeout covers connection
// establishment and is also the per-call I/O deadline of the returned
// connection.
type Dialer func(addr string, timeout time.Duration) (Conn, error)

// ClientPool keeps one fixed-capacity connection pool per remote address.
// Pools are created lazily on first use and live until Close.
type ClientPool struct {
	dialer      Dialer
	capacity    int
	idleTimeout time.Duration

	mu    sync.Mutex
	pools map[string]*pools.ResourcePool
}

// NewClientPool creates a ClientPool with the given per-address capacity.
func NewClientPool(dialer Dialer, capacity int, idleTimeout time.Duration) *ClientPool {
	return &ClientPool{
		dialer:      dialer,
		capacity:    capacity,
		idleTimeout: idleTimeout,
		pools:       make(map[string]*pools.ResourcePool),
	}
}

func (cp *ClientPool) pool(addr string, timeout time.Duration) *pools.ResourcePool {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	p, ok := cp.pools[addr]
	if !ok {
		factory := func() (pools.Resource, error) {
			conn, err := cp.dialer(addr, timeout)
			if err != nil {
				return nil, err
			}
			return &pooledConn{Conn: conn}, nil
		}
		p = pools.NewResourcePool(factory, cp.capacity, cp.capacity, cp.idleTimeout)
		cp.pools[addr] = p
	}
	return p
}

// pooledConn adapts a Conn to the pools.Resource interface.
type pooledConn struct {
	Conn
}

// Borrow takes a connection to addr out of the pool, dialing a new one if
// the slot is empty. The context bounds the wait for a free slot.
func (cp *ClientPool) Borrow(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
	r, err := cp.pool(addr, timeout).Get(ctx)
	if err != nil {
		return nil, terrors.Wrapf(err, "borrowing connection to %v", addr)
	}
	return r.(*pooledConn).Conn, nil
}

// Return hands a healthy connection back to the pool.
func (cp *ClientPool) Return(addr string, conn Conn) {
	cp.mu.Lock()
	p := cp.pools[addr]
	cp.mu.Unlock()
	if p == nil {
		conn.Close()
		return
	}
	p.Put(&pooledConn{Conn: conn})
}

// Invalidate closes a broken connection and frees its pool slot, so a
// fresh connection can be dialed in its place.
func (cp *ClientPool) Invalidate(addr string, conn Conn) {
	conn.Close()
	cp.mu.Lock()
	p := cp.pools[addr]
	cp.mu.Unlock()
	if p != nil {
		p.Put(nil)
	}
}

// Reopen closes a broken connection and dials a replacement. The borrowed
// pool slot stays with the caller either way.
func (cp *ClientPool) Reopen(addr string, conn Conn, timeout time.Duration) (Conn, error) {
	conn.Close()
	fresh, err := cp.dialer(addr, timeout)
	if err != nil {
		return nil, terrors.Wrapf(err, "reopening connection to %v", addr)
	}
	return fresh, nil
}

// Close shuts down every per-address pool. Outstanding connections are
// waited for.
func (cp *ClientPool) Close() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for _, p := range cp.pools {
		p.Close()
	}
	cp.pools = make(map[string]*pools.ResourcePool)
}
