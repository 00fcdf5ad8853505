// File: internal/game/snapshot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package game

import (
	"math"
	"time"
)

// PlayerView is one occupied slot as seen by observers.
type PlayerView struct {
	ID    uint32  `json:"id"`
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Z     float32 `json:"z"`
	Alive bool    `json:"alive"`
	Score uint32  `json:"score"`
}

// Snapshot is an immutable copy of the table taken by the loop goroutine.
type Snapshot struct {
	Taken    time.Time    `json:"taken"`
	Capacity int          `json:"capacity"`
	Sessions int          `json:"sessions"`
	Alive    int          `json:"alive"`
	Players  []PlayerView `json:"players"`
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (g *Game) Snapshot() *Snapshot {
	return g.snap.Load()
}

// publish copies the table into a new Snapshot and refreshes the gauges.
func (g *Game) publish() {
	s := &Snapshot{
		Taken:    time.Now(),
		Capacity: g.table.Cap(),
		Sessions: g.table.Len(),
		Alive:    g.table.AliveCount(),
		Players:  make([]PlayerView, 0, g.table.Len()),
	}
	for id, p := range g.table.All() {
		s.Players = append(s.Players, PlayerView{
			ID:    uint32(id),
			X:     finite(p.Pos.X),
			Y:     finite(p.Pos.Y),
			Z:     finite(p.Pos.Z),
			Alive: p.Alive,
			Score: p.Score,
		})
	}
	g.snap.Store(s)
	g.metrics.Sessions.Set(float64(s.Sessions))
	g.metrics.Alive.Set(float64(s.Alive))
}

// finite maps NaN and infinities to zero; encoding/json rejects them.
func finite(f float32) float32 {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return 0
	}
	return f
}
