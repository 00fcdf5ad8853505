// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection player state.

package session

import (
	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/protocol"
)

// ID is a slot index. It stays valid for the lifetime of the connection.
type ID uint32

// Session holds one connected player.
type Session struct {
	// Conn is nil for an empty slot.
	Conn api.NetConn

	Pos   protocol.Vec3
	Alive bool
	Score uint32

	// Inbound staging; frames larger than its capacity are rejected.
	Recv *protocol.Splitter

	// Pending is the outbound stream the socket has not taken yet: the tail
	// of a partly written frame, then whole frames queued behind it while
	// they fit its capacity.
	Pending []byte
}

// Occupied reports whether the slot holds a live connection.
func (s *Session) Occupied() bool {
	return s.Conn != nil
}

func (s *Session) reset() {
	s.Conn = nil
	s.Pos = protocol.Vec3{}
	s.Alive = false
	s.Score = 0
	if s.Recv != nil {
		s.Recv.Reset()
	}
	s.Pending = s.Pending[:0]
}
