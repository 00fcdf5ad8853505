// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the transport contracts.

package fake

import (
	"encoding/binary"
	"sync"

	"github.com/momentics/hioload-arena/api"
)

// WriteStep scripts the outcome of one Write call.
// Limit caps the bytes accepted (negative means everything); Err is returned
// after those bytes are recorded.
type WriteStep struct {
	Limit int
	Err   error
}

// Conn is a fake implementation of api.NetConn for testing.
type Conn struct {
	mu         sync.Mutex
	fd         uintptr
	recv       [][]byte
	eof        bool
	recvErr    error
	sent       []byte
	steps      []WriteStep
	writeCalls int
	closed     bool
	closeErr   error
}

var _ api.NetConn = (*Conn)(nil)

// NewConn creates a fake connection reporting fd as its descriptor.
func NewConn(fd uintptr) *Conn {
	return &Conn{fd: fd}
}

// Read implements api.NetConn.Read.
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, api.ErrTransportClosed
	}
	if c.recvErr != nil {
		err := c.recvErr
		c.recvErr = nil
		return 0, err
	}
	if len(c.recv) == 0 {
		if c.eof {
			return 0, nil
		}
		return 0, api.ErrWouldBlock
	}
	n := copy(p, c.recv[0])
	if n < len(c.recv[0]) {
		c.recv[0] = c.recv[0][n:]
	} else {
		c.recv = c.recv[1:]
	}
	return n, nil
}

// Write implements api.NetConn.Write, following any scripted steps first.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeCalls++
	if c.closed {
		return 0, api.ErrTransportClosed
	}
	n := len(p)
	var err error
	if len(c.steps) > 0 {
		step := c.steps[0]
		c.steps = c.steps[1:]
		if step.Limit >= 0 && step.Limit < n {
			n = step.Limit
		}
		err = step.Err
	}
	c.sent = append(c.sent, p[:n]...)
	return n, err
}

// Close implements api.NetConn.Close.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

// RawFD implements api.NetConn.RawFD.
func (c *Conn) RawFD() uintptr {
	return c.fd
}

// Feed queues data for a later Read.
func (c *Conn) Feed(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recv = append(c.recv, append([]byte(nil), data...))
}

// Hangup makes Read report an orderly close once queued data is consumed.
func (c *Conn) Hangup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eof = true
}

// SetRecvError makes the next Read fail with err.
func (c *Conn) SetRecvError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvErr = err
}

// SetCloseError configures the error returned by Close.
func (c *Conn) SetCloseError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeErr = err
}

// Script queues write outcomes consumed by successive Write calls.
func (c *Conn) Script(steps ...WriteStep) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, steps...)
}

// Sent returns every byte accepted by Write.
func (c *Conn) Sent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.sent...)
}

// Frames splits the accepted bytes on their length prefixes.
func (c *Conn) Frames() [][]byte {
	sent := c.Sent()
	var frames [][]byte
	for len(sent) >= 4 {
		n := int(binary.BigEndian.Uint32(sent))
		if n < 4 || n > len(sent) {
			break
		}
		frames = append(frames, sent[:n])
		sent = sent[n:]
	}
	return frames
}

// ClearSent forgets accepted bytes.
func (c *Conn) ClearSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// WriteCalls returns how many times Write was invoked.
func (c *Conn) WriteCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCalls
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
