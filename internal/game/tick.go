// File: internal/game/tick.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package game

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/momentics/hioload-arena/protocol"
)

// Tick broadcasts the authoritative positions of every alive player to
// every connected session. Nothing is sent while nobody is alive. It reports
// whether an update went out.
func (g *Game) Tick(ctx context.Context) bool {
	if g.table.AliveCount() == 0 {
		return false
	}
	_, span := g.tracer.Start(ctx, "game.tick")
	defer span.End()

	players := make([]protocol.PlayerState, 0, g.table.AliveCount())
	for id, s := range g.table.All() {
		if s.Alive {
			players = append(players, protocol.PlayerState{ID: uint32(id), Pos: s.Pos})
		}
	}
	msg := protocol.ServerMapUpdate{Players: players}
	sent := g.announce(msg, g.out.All())
	g.metrics.Ticks.Inc()
	span.SetAttributes(
		attribute.Int("arena.players", len(players)),
		attribute.Int("arena.delivered", sent),
	)

	if g.feed != nil {
		frame, err := protocol.Encode(msg)
		if err == nil {
			select {
			case g.feed <- frame:
			default:
			}
		}
	}
	g.publish()
	return true
}
