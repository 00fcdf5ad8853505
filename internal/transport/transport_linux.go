// internal/transport/transport_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux listener built directly on socket(2), bind(2), listen(2) and accept4(2).

package transport

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-arena/api"
)

type listener struct {
	fd     int
	addr   string
	mu     sync.Mutex
	closed bool
}

var _ api.Listener = (*listener)(nil)

// Listen opens a non-blocking listening socket on every local address at
// port. It tries an IPv6 socket accepting IPv4-mapped peers first and an
// IPv4 socket second. A non-positive backlog selects DefaultBacklog.
func Listen(port string, backlog int) (api.Listener, error) {
	p, err := parsePort(port)
	if err != nil {
		return nil, err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}

	fd, err6 := listenSocket(unix.AF_INET6, p, backlog)
	if err6 != nil {
		var err4 error
		fd, err4 = listenSocket(unix.AF_INET, p, backlog)
		if err4 != nil {
			return nil, api.Wrap(api.ErrCodeTransport, "listen", errors.Join(err6, err4)).
				WithContext("port", port)
		}
	}

	l := &listener{fd: fd}
	l.addr, err = sockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, api.Wrap(api.ErrCodeTransport, "getsockname", err)
	}
	return l, nil
}

func listenSocket(family, port, backlog int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	fail := func(op string, err error) (int, error) {
		unix.Close(fd)
		return -1, fmt.Errorf("%s: %w", op, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("so_reuseaddr", err)
	}

	var sa unix.Sockaddr
	if family == unix.AF_INET6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			return fail("ipv6_v6only", err)
		}
		sa = &unix.SockaddrInet6{Port: port}
	} else {
		sa = &unix.SockaddrInet4{Port: port}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}
	return fd, nil
}

func sockname(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)).String(), nil
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)).String(), nil
	}
	return "", fmt.Errorf("unexpected socket address %T", sa)
}

// Accept takes one pending connection. ErrWouldBlock means the queue is
// empty or the peer went away before it was taken.
func (l *listener) Accept() (api.NetConn, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, api.ErrTransportClosed
	}

	nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if retryable(err) || errors.Is(err, unix.ECONNABORTED) {
			return nil, fmt.Errorf("accept: %w: %w", api.ErrWouldBlock, err)
		}
		return nil, api.Wrap(api.ErrCodeTransport, "accept", err)
	}
	_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &socketConn{fd: nfd}, nil
}

// Close stops listening. Pending connections are dropped by the kernel.
func (l *listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return unix.Close(l.fd)
}

// RawFD returns the listening descriptor.
func (l *listener) RawFD() uintptr {
	return uintptr(l.fd)
}

// Addr returns the bound address, e.g. "[::]:4000".
func (l *listener) Addr() string {
	return l.addr
}
