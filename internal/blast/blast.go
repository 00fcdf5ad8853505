// File: internal/blast/blast.go
// Package blast computes self-annihilation chain reactions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A detonating player eliminates every other alive player within Radius.
// Each eliminated player detonates in turn against the updated aliveness
// state, so a player can be reached through a chain even when it is out of
// range of the original detonator.

package blast

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-arena/internal/session"
)

// DefaultRadius is the blast radius used by the arena.
const DefaultRadius float32 = 0.25

// Propagator runs chain reactions over a session table.
type Propagator struct {
	Radius float32
}

// New returns a propagator with the given radius.
func New(radius float32) *Propagator {
	return &Propagator{Radius: radius}
}

// Detonate eliminates everyone reached from origin and returns their IDs in
// discovery order. The origin itself is never listed and its aliveness is
// left to the caller. Each victim is killed through Table.Kill, which
// decrements the alive count exactly once.
//
// The traversal is breadth-first over an explicit work queue; all victims
// are appended to one shared slice.
func (p *Propagator) Detonate(t *session.Table, origin session.ID) []session.ID {
	if _, err := t.Get(origin); err != nil {
		return nil
	}

	killed := make([]session.ID, 0, max(t.Cap()-1, 0))
	work := queue.New()
	work.Add(origin)

	for work.Length() > 0 {
		src := work.Remove().(session.ID)
		from, err := t.Get(src)
		if err != nil {
			continue
		}
		for id, s := range t.All() {
			if id == src || id == origin || !s.Alive {
				continue
			}
			// NaN distances never satisfy the radius.
			if d := from.Pos.Distance(s.Pos); !(d <= p.Radius) {
				continue
			}
			if t.Kill(id) {
				killed = append(killed, id)
				work.Add(id)
			}
		}
	}
	return killed
}
