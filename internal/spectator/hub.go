// File: internal/spectator/hub.go
// Package spectator streams map updates to read-only websocket viewers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The game loop hands frames to the hub through a buffered channel and never
// waits on it. Each viewer has its own bounded queue; a viewer that falls
// behind loses frames rather than slowing anyone else down.

package spectator

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	feedBuffer   = 16
	viewerBuffer = 32
)

// Hub fans map frames out to every connected viewer.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	feed     chan []byte

	mu      sync.RWMutex
	viewers map[*viewer]struct{}
	closed  bool
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (v *viewer) close() {
	v.once.Do(func() { close(v.send) })
}

// New creates a hub. A nil logger discards output.
func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		log: log.With("component", "spectator"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		feed:    make(chan []byte, feedBuffer),
		viewers: make(map[*viewer]struct{}),
	}
}

// Feed is the channel the game loop publishes frames on.
func (h *Hub) Feed() chan<- []byte {
	return h.feed
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Run forwards published frames until ctx is done, then disconnects every
// viewer.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-h.feed:
			h.broadcast(frame)
		}
	}
}

func (h *Hub) broadcast(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for v := range h.viewers {
		select {
		case v.send <- frame:
		default:
			h.log.Debug("viewer lagging, frame dropped", "remote", v.conn.RemoteAddr().String())
		}
	}
}

// ServeHTTP upgrades the request and streams frames as binary messages.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	v := &viewer{conn: conn, send: make(chan []byte, viewerBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.viewers[v] = struct{}{}
	n := len(h.viewers)
	h.mu.Unlock()
	h.log.Info("viewer connected", "remote", conn.RemoteAddr().String(), "viewers", n)

	go h.writePump(v)
	go h.readPump(v)
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	if _, ok := h.viewers[v]; ok {
		delete(h.viewers, v)
		v.close()
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for v := range h.viewers {
		delete(h.viewers, v)
		v.close()
	}
}

// readPump only services control frames; viewers have nothing to say.
func (h *Hub) readPump(v *viewer) {
	defer func() {
		h.remove(v)
		v.conn.Close()
	}()
	v.conn.SetReadLimit(512)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"))
				return
			}
			if err := v.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				h.log.Debug("viewer write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
