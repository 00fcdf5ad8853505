// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-arena/api"
)

// Reactor is a scriptable api.Reactor. Each Wait returns the next queued
// batch, or nothing once the script is exhausted.
type Reactor struct {
	mu         sync.Mutex
	registered map[uintptr]uint64
	batches    [][]api.Event
	waitErrs   []error
	waits      int
	closed     bool
	OnWait     func(n int)
}

var _ api.Reactor = (*Reactor)(nil)

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{registered: make(map[uintptr]uint64)}
}

// Register implements api.Reactor.Register.
func (r *Reactor) Register(fd uintptr, token uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[fd]; ok {
		return api.ErrInvalidArgument
	}
	r.registered[fd] = token
	return nil
}

// Unregister implements api.Reactor.Unregister.
func (r *Reactor) Unregister(fd uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[fd]; !ok {
		return api.ErrNotFound
	}
	delete(r.registered, fd)
	return nil
}

// Push queues one batch of readiness events for a future Wait.
func (r *Reactor) Push(events ...api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
}

// FailWait queues errors returned by the next Wait calls, one per call,
// ahead of any event batches.
func (r *Reactor) FailWait(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waitErrs = append(r.waitErrs, errs...)
}

// Readable builds a read-ready event for a registered descriptor.
func (r *Reactor) Readable(fd uintptr) api.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return api.Event{Fd: fd, Token: r.registered[fd], Flags: api.EventReadable}
}

// Wait implements api.Reactor.Wait. Events for descriptors that are no
// longer registered are dropped, as a kernel poller would.
func (r *Reactor) Wait(_ time.Duration, events []api.Event) (int, error) {
	r.mu.Lock()
	r.waits++
	waits := r.waits
	if len(r.waitErrs) > 0 {
		err := r.waitErrs[0]
		r.waitErrs = r.waitErrs[1:]
		hook := r.OnWait
		r.mu.Unlock()
		if hook != nil {
			hook(waits)
		}
		return 0, err
	}
	var batch []api.Event
	if len(r.batches) > 0 {
		batch = r.batches[0]
		r.batches = r.batches[1:]
	}
	n := 0
	for _, ev := range batch {
		if n == len(events) {
			break
		}
		if _, ok := r.registered[ev.Fd]; !ok {
			continue
		}
		events[n] = ev
		n++
	}
	hook := r.OnWait
	r.mu.Unlock()
	if hook != nil {
		hook(waits)
	}
	return n, nil
}

// Registered reports whether fd is in the interest set.
func (r *Reactor) Registered(fd uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.registered[fd]
	return ok
}

// Close implements api.Reactor.Close.
func (r *Reactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Reactor) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Waits returns how many times Wait was called.
func (r *Reactor) Waits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waits
}
