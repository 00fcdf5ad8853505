// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness reactor used to multiplex
// the listener and every session socket on one goroutine.

package api

import "time"

// EventFlags describes what an OS-level readiness notification reported.
type EventFlags uint8

const (
	EventReadable EventFlags = 1 << iota
	EventWritable
	EventHangup
	EventError
)

// Has reports whether all bits of f are set.
func (e EventFlags) Has(f EventFlags) bool {
	return e&f == f
}

// Event encapsulates the result of an OS-level readiness notification.
type Event struct {
	Fd    uintptr    // file descriptor or system handle
	Token uint64     // opaque application value given at registration
	Flags EventFlags // readiness bits
}

// Reactor defines the readiness poller regardless of the polling mechanism.
type Reactor interface {
	// Register associates a descriptor with the poller for read readiness.
	Register(fd uintptr, token uint64) error

	// Unregister removes a descriptor from the interest set.
	Unregister(fd uintptr) error

	// Wait blocks up to timeout and fills events with ready descriptors.
	// A negative timeout blocks indefinitely; zero returns immediately.
	Wait(timeout time.Duration, events []Event) (int, error)

	// Close releases the poller backend.
	Close() error
}
