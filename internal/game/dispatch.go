// File: internal/game/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-message rules. Every handler finishes its table mutations and
// broadcasts before returning, so the loop can move on to the next session.

package game

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/internal/broadcast"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/protocol"
)

// Join tells a freshly allocated session its ID. A delivery failure is
// returned but the session stays connected.
func (g *Game) Join(ctx context.Context, id session.ID) error {
	_, span := g.tracer.Start(ctx, "game.join", trace.WithAttributes(
		attribute.Int64("arena.session_id", int64(id)),
	))
	defer span.End()
	defer g.publish()

	if _, err := g.table.Get(id); err != nil {
		return g.fail(span, fmt.Errorf("join %d: %w", id, err))
	}
	g.log.Info("player joined", "session", id, "sessions", g.table.Len())

	if err := g.send(protocol.JoinResponse{ID: uint32(id)}, broadcast.Unicast(id)); err != nil {
		return g.fail(span, fmt.Errorf("join %d: %w", id, err))
	}
	return nil
}

// Leave releases a session after a hangup or an unrecoverable read error.
func (g *Game) Leave(id session.ID, reason string) {
	s, err := g.table.Get(id)
	if err != nil {
		return
	}
	wasAlive := s.Alive
	if err := g.table.Release(id); err != nil {
		g.log.Warn("close failed", "session", id, "error", err)
	}
	g.metrics.Disconnects.Inc()
	g.log.Info("player left", "session", id, "reason", reason, "was_alive", wasAlive)
	g.publish()
}

// Handle applies one decoded client message from id.
func (g *Game) Handle(ctx context.Context, id session.ID, msg protocol.Message) error {
	kind := msg.Kind()
	ctx, span := g.tracer.Start(ctx, "game."+kind.String(), trace.WithAttributes(
		attribute.Int64("arena.session_id", int64(id)),
		attribute.String("arena.kind", kind.String()),
	))
	defer span.End()

	s, err := g.table.Get(id)
	if err != nil {
		return g.fail(span, fmt.Errorf("handle %s from %d: %w", kind, id, err))
	}
	if !kind.FromClient() {
		g.metrics.ProtocolErrors.WithLabelValues("wrong_direction").Inc()
		return g.fail(span, api.NewError(api.ErrCodeProtocol, "server message from client").
			WithContext("session", id).
			WithContext("kind", kind.String()))
	}
	g.metrics.Messages.WithLabelValues(kind.String()).Inc()

	switch m := msg.(type) {
	case protocol.PlayerMove:
		// Moves reach the snapshot with the next tick.
		s.Pos = m.Pos
		g.log.Debug("player moved", "session", id, "x", m.Pos.X, "y", m.Pos.Y, "z", m.Pos.Z)

	case protocol.PlayerSpawn:
		s.Pos = m.Pos
		if err := g.table.SetAlive(id, true); err != nil {
			return g.fail(span, err)
		}
		g.log.Info("player spawned", "session", id, "x", m.Pos.X, "y", m.Pos.Y, "z", m.Pos.Z)
		g.announce(protocol.PlayerSpawnWithID{ID: uint32(id), Pos: m.Pos}, g.out.AllExcept(id))
		g.publish()

	case protocol.PlayerSelfAnnihilate:
		return g.annihilate(ctx, span, id)

	default:
		return g.fail(span, api.NewError(api.ErrCodeProtocol, "unhandled message").
			WithContext("kind", kind.String()))
	}
	return nil
}

func (g *Game) annihilate(ctx context.Context, parent trace.Span, id session.ID) error {
	if !g.table.Kill(id) {
		g.log.Warn("annihilation from a player who is not alive ignored", "session", id)
		parent.SetAttributes(attribute.Bool("arena.ignored", true))
		return nil
	}
	g.metrics.Annihilations.Inc()

	_, span := g.tracer.Start(ctx, "blast.detonate")
	killed := g.blast.Detonate(g.table, id)
	span.SetAttributes(attribute.Int("arena.kills", len(killed)))
	span.End()

	s, _ := g.table.Get(id)
	s.Score += uint32(len(killed))
	g.metrics.Kills.Add(float64(len(killed)))

	ids := make([]uint32, len(killed))
	for i, k := range killed {
		ids[i] = uint32(k)
	}
	g.log.Info("player self-annihilated", "session", id, "kills", len(killed), "killed", ids, "score", s.Score)
	g.announce(protocol.AnnihilationResults{ID: uint32(id), Killed: ids}, g.out.All())
	g.publish()
	return nil
}

// announce encodes m once and writes it to targets, recording the outcome.
// It returns the number of targets that received the whole frame.
func (g *Game) announce(m protocol.Message, targets []session.ID) int {
	frame, err := protocol.AppendEncode(g.buf[:0], m)
	if err != nil {
		g.log.Error("encode failed", "kind", m.Kind().String(), "error", err)
		return 0
	}
	g.buf = frame[:0]

	kind := m.Kind().String()
	ok := g.out.SendTo(targets, frame)
	g.metrics.BroadcastSent.WithLabelValues(kind).Add(float64(ok))
	if failed := len(targets) - ok; failed > 0 {
		g.metrics.BroadcastFailed.WithLabelValues(kind).Add(float64(failed))
		g.log.Warn("partial broadcast", "kind", kind, "targets", len(targets), "delivered", ok)
	}
	return ok
}

// send delivers m to a single target and reports its error.
func (g *Game) send(m protocol.Message, target []session.ID) error {
	frame, err := protocol.AppendEncode(g.buf[:0], m)
	if err != nil {
		return err
	}
	g.buf = frame[:0]

	kind := m.Kind().String()
	for _, id := range target {
		if err := g.out.Send(id, frame); err != nil {
			g.metrics.BroadcastFailed.WithLabelValues(kind).Inc()
			return err
		}
		g.metrics.BroadcastSent.WithLabelValues(kind).Inc()
	}
	return nil
}

func (g *Game) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
