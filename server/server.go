// File: server/server.go
// Package server runs the single-goroutine game loop: readiness polling,
// accepting players, reading and dispatching their frames, and the map
// update tick.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/internal/broadcast"
	"github.com/momentics/hioload-arena/internal/game"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/reactor"
)

var ErrAlreadyRunning = errors.New("server already running")

// listenerToken marks the listener in the reactor; sessions use their ID.
const listenerToken = math.MaxUint64

// Server owns the listener, the reactor, the session table and every
// session socket. None of them may be touched from another goroutine while
// Run is active.
type Server struct {
	cfg     control.Config
	ln      api.Listener
	reactor api.Reactor
	table   *session.Table
	game    *game.Game
	accept  broadcast.RetryPolicy

	log     *slog.Logger
	metrics *control.Metrics
	tracer  trace.Tracer
	feed    chan<- []byte
	now     func() time.Time

	events   []api.Event
	lastTick time.Time
	running  atomic.Bool
}

// New assembles a server around an open listener and reactor. The server
// takes ownership of both and closes them when Run returns.
func New(cfg control.Config, ln api.Listener, re api.Reactor, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ln == nil || re == nil {
		return nil, api.ErrInvalidArgument
	}
	s := &Server{
		cfg:     cfg,
		ln:      ln,
		reactor: re,
		table:   session.New(cfg.Capacity, cfg.BufferSize),
		now:     time.Now,
		events:  make([]api.Event, reactor.MaxEvents),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.log = s.log.With("component", "server")
	if s.metrics == nil {
		s.metrics = control.NewMetrics(nil)
	}
	s.accept = broadcast.RetryPolicy{
		Attempts: cfg.RetryAttempts,
		Retryable: func(err error) bool {
			return !errors.Is(err, api.ErrTransportClosed)
		},
	}
	s.game = game.New(s.table, game.Options{
		Radius:  cfg.BlastRadius,
		Policy:  broadcast.RetryPolicy{Attempts: cfg.RetryAttempts},
		Metrics: s.metrics,
		Log:     s.log,
		Tracer:  s.tracer,
		Feed:    s.feed,
	})
	return s, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.ln.Addr()
}

// Snapshot returns the latest published game state. Safe from any goroutine.
func (s *Server) Snapshot() *game.Snapshot {
	return s.game.Snapshot()
}

// shutdown closes every session, the listener and the reactor.
func (s *Server) shutdown() error {
	for _, id := range s.table.IDs() {
		s.drop(id, "shutdown")
	}
	var errs []error
	if err := s.reactor.Unregister(s.ln.RawFD()); err != nil && !errors.Is(err, api.ErrNotFound) {
		errs = append(errs, err)
	}
	if err := s.ln.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.reactor.Close(); err != nil {
		errs = append(errs, err)
	}
	s.log.Info("server stopped")
	return errors.Join(errs...)
}
