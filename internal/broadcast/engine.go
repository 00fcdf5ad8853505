// File: internal/broadcast/engine.go
// Package broadcast delivers one encoded frame to a set of sessions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A target that cannot take the whole frame within the retry budget is
// counted as failed and left connected; disconnect detection belongs to the
// read path. Unsent bytes stay staged on the session.

package broadcast

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/internal/session"
)

// Engine writes frames to sessions of one table.
type Engine struct {
	Table  *session.Table
	Policy RetryPolicy
	Log    *slog.Logger
}

// New builds an engine. A nil logger discards output.
func New(t *session.Table, policy RetryPolicy, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{Table: t, Policy: policy, Log: log.With("component", "broadcast")}
}

// Send writes buf to one session. Every attempt writes only the bytes not
// yet accepted, so a retried frame never repeats a prefix on the stream.
//
// When the budget runs out mid-frame the unsent tail is kept in the
// session's Pending buffer and flushed ahead of the next frame, so the
// client's stream stays frame aligned. A frame arriving while that tail is
// still stalled is queued behind it if it fits, and dropped whole otherwise.
func (e *Engine) Send(id session.ID, buf []byte) error {
	s, err := e.Table.Get(id)
	if err != nil {
		return fmt.Errorf("send to %d: %w", id, err)
	}

	if len(s.Pending) > 0 {
		n, err := e.write(s.Conn, s.Pending)
		s.Pending = s.Pending[:copy(s.Pending, s.Pending[n:])]
		if err != nil {
			if len(buf) > cap(s.Pending)-len(s.Pending) {
				return fmt.Errorf("send to %d (%d bytes stalled): %w", id, len(s.Pending), api.ErrSendBacklog)
			}
			s.Pending = append(s.Pending, buf...)
			return fmt.Errorf("send to %d (queued behind %d stalled bytes): %w", id, len(s.Pending)-len(buf), err)
		}
	}

	n, err := e.write(s.Conn, buf)
	if err != nil {
		if n > 0 {
			s.Pending = append(s.Pending, buf[n:]...)
		}
		return fmt.Errorf("send to %d (%d/%d bytes): %w", id, n, len(buf), err)
	}
	return nil
}

// write pushes p under the retry policy and reports how many bytes the
// socket accepted.
func (e *Engine) write(c api.NetConn, p []byte) (int, error) {
	off := 0
	err := e.Policy.Do(func() error {
		n, werr := c.Write(p[off:])
		if n > 0 {
			off += n
		}
		if werr != nil {
			return werr
		}
		if off < len(p) {
			return errShortWrite
		}
		return nil
	})
	return off, err
}

// SendTo writes buf to every target and returns how many received it in
// full. An empty target set returns 0.
func (e *Engine) SendTo(ids []session.ID, buf []byte) int {
	ok := 0
	for _, id := range ids {
		if err := e.Send(id, buf); err != nil {
			e.Log.Warn("broadcast target failed", "session", id, "error", err)
			continue
		}
		ok++
	}
	return ok
}

// Unicast is the target set holding only id.
func Unicast(id session.ID) []session.ID {
	return []session.ID{id}
}

// All returns every occupied session.
func (e *Engine) All() []session.ID {
	return e.Table.IDs()
}

// AllExcept returns every occupied session other than skip.
func (e *Engine) AllExcept(skip session.ID) []session.ID {
	ids := e.Table.IDs()
	out := ids[:0]
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
