// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Slot arena with lowest-free-slot allocation and an alive-player counter.

package session

import (
	"fmt"
	"iter"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/protocol"
)

// DefaultBufferSize matches the per-connection staging size of the wire protocol.
const DefaultBufferSize = 1024

// Table is a fixed-capacity array of session slots.
type Table struct {
	slots   []Session
	used    int
	alive   int
	bufSize int
}

// New constructs a table with capacity slots, each staging at most bufSize
// inbound and bufSize outbound bytes. A non-positive bufSize selects DefaultBufferSize.
func New(capacity, bufSize int) *Table {
	if capacity < 0 {
		capacity = 0
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Table{
		slots:   make([]Session, capacity),
		bufSize: bufSize,
	}
}

// Allocate stores conn in the lowest empty slot. The new session is not alive.
func (t *Table) Allocate(conn api.NetConn) (ID, error) {
	if conn == nil {
		return 0, fmt.Errorf("allocate: %w", api.ErrInvalidArgument)
	}
	for i := range t.slots {
		s := &t.slots[i]
		if s.Occupied() {
			continue
		}
		s.reset()
		s.Conn = conn
		if s.Recv == nil {
			s.Recv = protocol.NewSplitter(t.bufSize)
			s.Pending = make([]byte, 0, t.bufSize)
		}
		t.used++
		return ID(i), nil
	}
	return 0, api.ErrTableFull
}

// Release closes the session's connection and empties its slot.
// An alive session leaves the alive count.
func (t *Table) Release(id ID) error {
	s, err := t.Get(id)
	if err != nil {
		return err
	}
	if s.Alive {
		t.alive--
	}
	closeErr := s.Conn.Close()
	s.reset()
	t.used--
	if closeErr != nil {
		return fmt.Errorf("release %d: %w", id, closeErr)
	}
	return nil
}

// Get resolves an ID to its occupied session.
func (t *Table) Get(id ID) (*Session, error) {
	if int(id) >= len(t.slots) || !t.slots[id].Occupied() {
		return nil, api.ErrNotFound
	}
	return &t.slots[id], nil
}

// SetAlive flips a session's aliveness and keeps the alive count in step.
func (t *Table) SetAlive(id ID, alive bool) error {
	s, err := t.Get(id)
	if err != nil {
		return err
	}
	switch {
	case alive && !s.Alive:
		t.alive++
	case !alive && s.Alive:
		t.alive--
	}
	s.Alive = alive
	return nil
}

// Kill marks an alive session dead. It reports false, and changes nothing,
// when the session is missing or already dead.
func (t *Table) Kill(id ID) bool {
	s, err := t.Get(id)
	if err != nil || !s.Alive {
		return false
	}
	s.Alive = false
	t.alive--
	return true
}

// All yields occupied sessions in ascending ID order. The set of IDs is
// fixed when All is called; slots released mid-iteration are skipped.
func (t *Table) All() iter.Seq2[ID, *Session] {
	ids := t.IDs()
	return func(yield func(ID, *Session) bool) {
		for _, id := range ids {
			s, err := t.Get(id)
			if err != nil {
				continue
			}
			if !yield(id, s) {
				return
			}
		}
	}
}

// IDs returns the occupied slot indices in ascending order.
func (t *Table) IDs() []ID {
	ids := make([]ID, 0, t.used)
	for i := range t.slots {
		if t.slots[i].Occupied() {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// AliveCount returns the number of occupied sessions currently alive.
func (t *Table) AliveCount() int {
	return t.alive
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	return t.used
}

// Cap returns the fixed slot count.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Full reports whether every slot is occupied.
func (t *Table) Full() bool {
	return t.used == len(t.slots)
}
