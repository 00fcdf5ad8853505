//go:build linux

// File: internal/transport/conn_linux.go
// Author: momentics <momentics@gmail.com>

package transport

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-arena/api"
)

// socketConn is an accepted non-blocking TCP socket.
type socketConn struct {
	fd     int
	closed bool
}

var _ api.NetConn = (*socketConn)(nil)

func retryable(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// Read reads whatever is queued. (0, nil) is an orderly peer shutdown.
func (c *socketConn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, api.ErrTransportClosed
	}
	if len(p) == 0 {
		return 0, fmt.Errorf("read: %w", api.ErrInvalidArgument)
	}
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if retryable(err) {
			return 0, api.ErrWouldBlock
		}
		return 0, fmt.Errorf("read: %w", err)
	}
	return n, nil
}

// Write sends as much of p as the socket buffer accepts. MSG_NOSIGNAL turns
// a reset peer into EPIPE instead of a signal.
func (c *socketConn) Write(p []byte) (int, error) {
	if c.closed {
		return 0, api.ErrTransportClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.SendmsgN(c.fd, p, nil, nil, unix.MSG_NOSIGNAL|unix.MSG_DONTWAIT)
	if err != nil {
		if retryable(err) {
			return 0, api.ErrWouldBlock
		}
		return 0, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

// Close closes the descriptor once.
func (c *socketConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

// RawFD returns the socket descriptor.
func (c *socketConn) RawFD() uintptr {
	return uintptr(c.fd)
}
