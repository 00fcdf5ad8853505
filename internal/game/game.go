// File: internal/game/game.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package game

import (
	"io"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/internal/blast"
	"github.com/momentics/hioload-arena/internal/broadcast"
	"github.com/momentics/hioload-arena/internal/session"
)

// TracerName names the tracer obtained from the global provider.
const TracerName = "github.com/momentics/hioload-arena/internal/game"

// Options configures a Game. Zero fields select defaults.
type Options struct {
	Radius  float32
	Policy  broadcast.RetryPolicy
	Metrics *control.Metrics
	Log     *slog.Logger
	Tracer  trace.Tracer

	// Feed, when set, receives a copy of every map update frame. Sends never
	// block; a full channel drops the frame.
	Feed chan<- []byte
}

// Game applies the rules to one session table.
type Game struct {
	table   *session.Table
	blast   *blast.Propagator
	out     *broadcast.Engine
	metrics *control.Metrics
	log     *slog.Logger
	tracer  trace.Tracer
	feed    chan<- []byte

	buf  []byte
	snap atomic.Pointer[Snapshot]
}

// New binds a game to t.
func New(t *session.Table, opts Options) *Game {
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetrics(nil)
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(TracerName)
	}
	if opts.Policy.Attempts <= 0 {
		opts.Policy.Attempts = broadcast.DefaultAttempts
	}
	radius := opts.Radius
	if radius == 0 {
		radius = blast.DefaultRadius
	}

	g := &Game{
		table:   t,
		blast:   blast.New(radius),
		out:     broadcast.New(t, opts.Policy, opts.Log),
		metrics: opts.Metrics,
		log:     opts.Log.With("component", "game"),
		tracer:  opts.Tracer,
		feed:    opts.Feed,
		buf:     make([]byte, 0, 512),
	}
	g.publish()
	return g
}

// Table returns the session table the game runs on.
func (g *Game) Table() *session.Table {
	return g.table
}

// Radius returns the blast radius in use.
func (g *Game) Radius() float32 {
	return g.blast.Radius
}
