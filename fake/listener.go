// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-arena/api"
)

// Listener hands out queued connections; Accept reports ErrWouldBlock when
// the queue is empty.
type Listener struct {
	mu      sync.Mutex
	fd      uintptr
	pending []api.NetConn
	errs    []error
	accepts int
	closed  bool
}

var _ api.Listener = (*Listener)(nil)

// NewListener creates a fake listener reporting fd as its descriptor.
func NewListener(fd uintptr) *Listener {
	return &Listener{fd: fd}
}

// Queue adds connections to be returned by Accept.
func (l *Listener) Queue(conns ...api.NetConn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, conns...)
}

// FailNext makes the next len(errs) Accept calls fail in order.
func (l *Listener) FailNext(errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, errs...)
}

// Accept implements api.Listener.Accept.
func (l *Listener) Accept() (api.NetConn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accepts++
	if l.closed {
		return nil, api.ErrTransportClosed
	}
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		return nil, err
	}
	if len(l.pending) == 0 {
		return nil, api.ErrWouldBlock
	}
	c := l.pending[0]
	l.pending = l.pending[1:]
	return c, nil
}

// Accepts returns the number of Accept calls.
func (l *Listener) Accepts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accepts
}

// Close implements api.Listener.Close.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Closed reports whether Close was called.
func (l *Listener) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// RawFD implements api.Listener.RawFD.
func (l *Listener) RawFD() uintptr { return l.fd }

// Addr implements api.Listener.Addr.
func (l *Listener) Addr() string { return "fake:0" }
