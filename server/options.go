// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/momentics/hioload-arena/control"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics sets the collectors updated by the loop.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer used for per-message spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithFeed forwards a copy of every map update to ch without blocking.
func WithFeed(ch chan<- []byte) Option {
	return func(s *Server) {
		s.feed = ch
	}
}

// WithClock replaces time.Now for tick scheduling.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}
