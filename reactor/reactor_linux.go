//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-arena/api"
)

// linuxReactor is a level-triggered epoll reactor watching read readiness.
type linuxReactor struct {
	epfd   int
	tokens map[int32]uint64
	raw    []unix.EpollEvent
}

var _ api.Reactor = (*linuxReactor)(nil)

// New constructs the epoll reactor.
func New() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &linuxReactor{
		epfd:   epfd,
		tokens: make(map[int32]uint64),
		raw:    make([]unix.EpollEvent, MaxEvents),
	}, nil
}

// Register adds fd with read and peer-hangup interest.
func (r *linuxReactor) Register(fd uintptr, token uint64) error {
	ev := &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), ev); err != nil {
		return fmt.Errorf("epoll ctl add %d: %w", fd, err)
	}
	r.tokens[int32(fd)] = token
	return nil
}

// Unregister removes fd. A descriptor the kernel already dropped (closed
// elsewhere) is not an error.
func (r *linuxReactor) Unregister(fd uintptr) error {
	delete(r.tokens, int32(fd))
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll ctl del %d: %w", fd, err)
	}
	return nil
}

// Wait fills events with ready descriptors. A signal interruption reports
// zero events.
func (r *linuxReactor) Wait(timeout time.Duration, events []api.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	raw := r.raw
	if len(events) < len(raw) {
		raw = raw[:len(events)]
	}
	n, err := unix.EpollWait(r.epfd, raw, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		token, ok := r.tokens[raw[i].Fd]
		if !ok {
			continue
		}
		events[out] = api.Event{
			Fd:    uintptr(raw[i].Fd),
			Token: token,
			Flags: flagsOf(raw[i].Events),
		}
		out++
	}
	return out, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	clear(r.tokens)
	return unix.Close(r.epfd)
}

func flagsOf(e uint32) api.EventFlags {
	var f api.EventFlags
	if e&unix.EPOLLIN != 0 {
		f |= api.EventReadable
	}
	if e&unix.EPOLLOUT != 0 {
		f |= api.EventWritable
	}
	if e&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
		f |= api.EventHangup
	}
	if e&unix.EPOLLERR != 0 {
		f |= api.EventError
	}
	return f
}
