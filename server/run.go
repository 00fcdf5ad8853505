// File: server/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The reactor loop. Each iteration waits for readiness, services the
// listener before any session, services sessions in ascending slot order
// and then checks the map update timer.

package server

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/protocol"
)

// Poll failures are retried after a doubling pause bounded by these values.
const (
	minPollBackoff = time.Millisecond
	maxPollBackoff = time.Second
)

// Run drives the loop until ctx is cancelled, then closes every session, the
// listener and the reactor. A failed poll is logged and retried; only
// registering the listener can end Run early.
func (s *Server) Run(ctx context.Context) (err error) {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		err = errors.Join(err, s.shutdown())
	}()
	if err := s.reactor.Register(s.ln.RawFD(), listenerToken); err != nil {
		return api.Wrap(api.ErrCodeTransport, "register listener", err)
	}

	s.lastTick = s.now()
	s.log.Info("server started",
		"addr", s.ln.Addr(),
		"capacity", s.cfg.Capacity,
		"tick", s.cfg.TickInterval,
		"radius", s.cfg.BlastRadius,
	)
	var backoff time.Duration
	for ctx.Err() == nil {
		if err := s.PollOnce(ctx); err != nil {
			backoff = min(max(2*backoff, minPollBackoff), maxPollBackoff)
			s.metrics.PollErrors.Inc()
			s.log.Error("poll failed", "error", err, "retry_in", backoff)
			pause(ctx, backoff)
			continue
		}
		backoff = 0
	}
	return nil
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// PollOnce runs a single loop iteration.
func (s *Server) PollOnce(ctx context.Context) error {
	n, err := s.reactor.Wait(s.cfg.PollTimeout, s.events)
	if err != nil {
		return api.Wrap(api.ErrCodeTransport, "poll", err)
	}
	ready := s.events[:n]
	slices.SortFunc(ready, func(a, b api.Event) int {
		return cmp.Compare(a.Token, b.Token)
	})

	// The listener token sorts last; take it first.
	if n > 0 && ready[n-1].Token == listenerToken {
		s.acceptOne(ctx)
		ready = ready[:n-1]
	}
	for _, ev := range ready {
		s.service(ctx, session.ID(ev.Token), ev.Flags)
	}
	s.maybeTick(ctx)
	return nil
}

// acceptOne takes one pending connection and seats it, or refuses it when
// the table is full.
func (s *Server) acceptOne(ctx context.Context) {
	var conn api.NetConn
	err := s.accept.Do(func() error {
		c, err := s.ln.Accept()
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		if errors.Is(err, api.ErrWouldBlock) {
			s.log.Debug("spurious listener wakeup", "error", err)
			return
		}
		s.metrics.AcceptFailures.Inc()
		s.log.Warn("accept failed", "error", err)
		return
	}

	id, err := s.table.Allocate(conn)
	if err != nil {
		s.metrics.Refused.Inc()
		s.log.Warn("connection refused", "error", err, "capacity", s.table.Cap())
		if cerr := conn.Close(); cerr != nil {
			s.log.Warn("close refused connection", "error", cerr)
		}
		return
	}
	if err := s.reactor.Register(conn.RawFD(), uint64(id)); err != nil {
		s.log.Warn("register session", "session", id, "error", err)
		if rerr := s.table.Release(id); rerr != nil {
			s.log.Warn("close failed", "session", id, "error", rerr)
		}
		return
	}
	s.metrics.Accepted.Inc()
	if err := s.game.Join(ctx, id); err != nil {
		s.log.Warn("join response not delivered", "session", id, "error", err)
	}
}

// service reads what one session has sent and dispatches every complete
// frame before returning.
func (s *Server) service(ctx context.Context, id session.ID, flags api.EventFlags) {
	sess, err := s.table.Get(id)
	if err != nil {
		return
	}
	n, err := sess.Conn.Read(sess.Recv.Free())
	switch {
	case errors.Is(err, api.ErrWouldBlock):
		if flags.Has(api.EventHangup) || flags.Has(api.EventError) {
			s.drop(id, "hangup")
		}
		return
	case err != nil:
		s.log.Warn("read failed", "session", id, "error", err)
		s.drop(id, "read error")
		return
	case n == 0:
		s.drop(id, "closed by peer")
		return
	}
	sess.Recv.Commit(n)

	for {
		frame, err := sess.Recv.Next()
		if err != nil {
			s.rejectFrame(id, err)
			return
		}
		if frame == nil {
			return
		}
		msg, err := protocol.Decode(frame)
		if err != nil {
			s.rejectFrame(id, err)
			continue
		}
		if err := s.game.Handle(ctx, id, msg); err != nil {
			s.log.Warn("message rejected", "session", id, "kind", msg.Kind().String(), "error", err)
		}
	}
}

func (s *Server) rejectFrame(id session.ID, err error) {
	reason := protocol.Reason(err)
	s.metrics.ProtocolErrors.WithLabelValues(reason).Inc()
	s.log.Warn("frame discarded", "session", id, "reason", reason, "error", err)
}

// drop removes a session from the interest set and releases its slot.
func (s *Server) drop(id session.ID, reason string) {
	sess, err := s.table.Get(id)
	if err != nil {
		return
	}
	if err := s.reactor.Unregister(sess.Conn.RawFD()); err != nil {
		s.log.Debug("unregister session", "session", id, "error", err)
	}
	s.game.Leave(id, reason)
}

// maybeTick sends a map update once the interval has elapsed. The timer
// restarts only when an update actually went out.
func (s *Server) maybeTick(ctx context.Context) {
	now := s.now()
	if now.Sub(s.lastTick) < s.cfg.TickInterval {
		return
	}
	if s.game.Tick(ctx) {
		s.lastTick = now
	}
}
