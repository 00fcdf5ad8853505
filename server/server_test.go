package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/fake"
	"github.com/momentics/hioload-arena/protocol"
)

type harness struct {
	t       *testing.T
	srv     *Server
	ln      *fake.Listener
	re      *fake.Reactor
	metrics *control.Metrics
	clock   time.Time
	nextFD  uintptr
}

func newHarness(t *testing.T, capacity int) *harness {
	t.Helper()
	h := newUnstarted(t, capacity)
	require.NoError(t, h.re.Register(h.ln.RawFD(), listenerToken))
	h.srv.lastTick = h.clock
	return h
}

func newUnstarted(t *testing.T, capacity int) *harness {
	t.Helper()
	cfg := control.DefaultConfig()
	cfg.Port = "0"
	cfg.Capacity = capacity

	h := &harness{
		t:       t,
		ln:      fake.NewListener(3),
		re:      fake.NewReactor(),
		metrics: control.NewMetrics(nil),
		clock:   time.Unix(1000, 0),
		nextFD:  10,
	}
	srv, err := New(cfg, h.ln, h.re,
		WithMetrics(h.metrics),
		WithClock(func() time.Time { return h.clock }),
	)
	require.NoError(t, err)
	h.srv = srv
	return h
}

func (h *harness) poll(events ...api.Event) {
	h.t.Helper()
	h.re.Push(events...)
	require.NoError(h.t, h.srv.PollOnce(context.Background()))
}

func (h *harness) listenerReady() api.Event {
	return h.re.Readable(h.ln.RawFD())
}

// connect queues a client, lets the loop accept it and clears its inbox.
func (h *harness) connect() *fake.Conn {
	h.t.Helper()
	c := fake.NewConn(h.nextFD)
	h.nextFD++
	h.ln.Queue(c)
	h.poll(h.listenerReady())
	c.ClearSent()
	return c
}

func encode(t *testing.T, msgs ...protocol.Message) []byte {
	t.Helper()
	var out []byte
	for _, m := range msgs {
		var err error
		out, err = protocol.AppendEncode(out, m)
		require.NoError(t, err)
	}
	return out
}

func decodeAll(t *testing.T, c *fake.Conn) []protocol.Message {
	t.Helper()
	var out []protocol.Message
	for _, f := range c.Frames() {
		m, err := protocol.Decode(f)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func TestAcceptSeatsAndGreets(t *testing.T) {
	h := newHarness(t, 4)
	c := fake.NewConn(10)
	h.ln.Queue(c)
	h.poll(h.listenerReady())

	assert.Equal(t, []protocol.Message{protocol.JoinResponse{ID: 0}}, decodeAll(t, c))
	assert.True(t, h.re.Registered(10))
	assert.Equal(t, 1, h.srv.table.Len())
	assert.Zero(t, h.srv.table.AliveCount(), "joining does not spawn")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Accepted))
	assert.Equal(t, 1, h.srv.Snapshot().Sessions)
}

func TestTableFullRefuses(t *testing.T) {
	h := newHarness(t, 2)
	h.connect()
	h.connect()

	extra := fake.NewConn(99)
	h.ln.Queue(extra)
	h.poll(h.listenerReady())

	assert.True(t, extra.Closed())
	assert.Empty(t, extra.Sent())
	assert.False(t, h.re.Registered(99))
	assert.Equal(t, 2, h.srv.table.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Refused))
}

func TestAcceptRetries(t *testing.T) {
	h := newHarness(t, 4)
	c := fake.NewConn(10)
	h.ln.FailNext(errors.New("connection aborted"), errors.New("connection aborted"))
	h.ln.Queue(c)
	h.poll(h.listenerReady())
	assert.Equal(t, 3, h.ln.Accepts())
	assert.Equal(t, 1, h.srv.table.Len())

	h.ln.FailNext(errors.New("a"), errors.New("b"), errors.New("c"))
	h.poll(h.listenerReady())
	assert.Equal(t, 6, h.ln.Accepts())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AcceptFailures))

	// A wakeup with nothing queued is not a failure.
	h.poll(h.listenerReady())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AcceptFailures))
}

func TestSlotReuseAfterDisconnect(t *testing.T) {
	h := newHarness(t, 4)
	h.connect()
	b := h.connect()
	h.connect()

	b.Hangup()
	h.poll(h.re.Readable(b.RawFD()))
	assert.True(t, b.Closed())
	assert.False(t, h.re.Registered(b.RawFD()))

	d := fake.NewConn(50)
	h.ln.Queue(d)
	h.poll(h.listenerReady())
	assert.Equal(t, []protocol.Message{protocol.JoinResponse{ID: 1}}, decodeAll(t, d))
}

func TestCoalescedFramesAllDispatched(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()
	b := h.connect()

	spawnAt := protocol.Vec3{X: 1}
	moveTo := protocol.Vec3{X: 2, Y: 3}
	a.Feed(encode(t, protocol.PlayerSpawn{Pos: spawnAt}, protocol.PlayerMove{Pos: moveTo}))
	h.poll(h.re.Readable(a.RawFD()))

	s, err := h.srv.table.Get(0)
	require.NoError(t, err)
	assert.True(t, s.Alive)
	assert.Equal(t, moveTo, s.Pos)
	assert.Equal(t, []protocol.Message{protocol.PlayerSpawnWithID{ID: 0, Pos: spawnAt}}, decodeAll(t, b))
	assert.Empty(t, a.Sent())
}

func TestPartialFrameAcrossReads(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()
	frame := encode(t, protocol.PlayerSpawn{Pos: protocol.Vec3{Z: 7}})

	a.Feed(frame[:5])
	h.poll(h.re.Readable(a.RawFD()))
	assert.Zero(t, h.srv.table.AliveCount())

	a.Feed(frame[5:])
	h.poll(h.re.Readable(a.RawFD()))
	assert.Equal(t, 1, h.srv.table.AliveCount())
}

func TestBadFramesDiscardedConnectionKept(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()

	unknown := []byte{0, 0, 0, 6, protocol.Version, 42}
	badVersion := []byte{0, 0, 0, 6, 9, byte(protocol.KindPlayerSelfAnnihilate)}
	stream := append(append(unknown, badVersion...), encode(t, protocol.PlayerMove{Pos: protocol.Vec3{Y: 1}})...)
	a.Feed(stream)
	h.poll(h.re.Readable(a.RawFD()))

	s, err := h.srv.table.Get(0)
	require.NoError(t, err, "connection survives protocol errors")
	assert.Equal(t, protocol.Vec3{Y: 1}, s.Pos)
	assert.False(t, s.Alive)
	assert.False(t, a.Closed())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ProtocolErrors.WithLabelValues("unknown_kind")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ProtocolErrors.WithLabelValues("bad_version")))
}

func TestOversizedFrameDiscarded(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()

	a.Feed([]byte{0, 0, 0x10, 0, protocol.Version, 1})
	h.poll(h.re.Readable(a.RawFD()))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ProtocolErrors.WithLabelValues("frame_too_large")))

	a.Feed(encode(t, protocol.PlayerSpawn{}))
	h.poll(h.re.Readable(a.RawFD()))
	assert.Equal(t, 1, h.srv.table.AliveCount())
}

func TestHangupReleasesAliveSession(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()
	a.Feed(encode(t, protocol.PlayerSpawn{}))
	h.poll(h.re.Readable(a.RawFD()))
	require.Equal(t, 1, h.srv.table.AliveCount())

	h.poll(api.Event{Fd: a.RawFD(), Token: 0, Flags: api.EventHangup})
	assert.True(t, a.Closed())
	assert.Zero(t, h.srv.table.AliveCount())
	assert.Zero(t, h.srv.table.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Disconnects))
}

func TestReadErrorReleases(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()
	a.SetRecvError(errors.New("connection reset by peer"))
	h.poll(h.re.Readable(a.RawFD()))
	assert.True(t, a.Closed())
	assert.Zero(t, h.srv.table.Len())
}

func TestListenerFirstThenAscendingSlots(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()
	b := h.connect()
	a.Feed(encode(t, protocol.PlayerSpawn{Pos: protocol.Vec3{X: 10}}))
	b.Feed(encode(t, protocol.PlayerSpawn{Pos: protocol.Vec3{X: 20}}))

	late := fake.NewConn(77)
	h.ln.Queue(late)
	h.poll(
		h.re.Readable(b.RawFD()),
		h.listenerReady(),
		h.re.Readable(a.RawFD()),
	)

	assert.Equal(t, []protocol.Message{
		protocol.JoinResponse{ID: 2},
		protocol.PlayerSpawnWithID{ID: 0, Pos: protocol.Vec3{X: 10}},
		protocol.PlayerSpawnWithID{ID: 1, Pos: protocol.Vec3{X: 20}},
	}, decodeAll(t, late))
}

func TestChainReactionOverTheWire(t *testing.T) {
	h := newHarness(t, 4)
	conns := []*fake.Conn{h.connect(), h.connect(), h.connect()}
	for i, x := range []float32{0, 0.2, 0.4} {
		conns[i].Feed(encode(t, protocol.PlayerSpawn{Pos: protocol.Vec3{X: x}}))
		h.poll(h.re.Readable(conns[i].RawFD()))
	}
	for _, c := range conns {
		c.ClearSent()
	}

	conns[0].Feed(encode(t, protocol.PlayerSelfAnnihilate{}))
	h.poll(h.re.Readable(conns[0].RawFD()))

	want := protocol.AnnihilationResults{ID: 0, Killed: []uint32{1, 2}}
	for _, c := range conns {
		assert.Equal(t, []protocol.Message{want}, decodeAll(t, c))
	}
	assert.Zero(t, h.srv.table.AliveCount())
}

func TestMapUpdateTick(t *testing.T) {
	h := newHarness(t, 4)
	a := h.connect()
	b := h.connect()

	h.clock = h.clock.Add(time.Second)
	h.poll()
	assert.Empty(t, a.Sent(), "no map while nobody is alive")

	a.Feed(encode(t, protocol.PlayerSpawn{Pos: protocol.Vec3{Y: 4}}))
	h.poll(h.re.Readable(a.RawFD()))
	want := protocol.ServerMapUpdate{Players: []protocol.PlayerState{{ID: 0, Pos: protocol.Vec3{Y: 4}}}}
	assert.Equal(t, []protocol.Message{want}, decodeAll(t, a), "overdue timer fires as soon as someone is alive")
	b.ClearSent()
	a.ClearSent()

	h.clock = h.clock.Add(49 * time.Millisecond)
	h.poll()
	assert.Empty(t, b.Sent())

	h.clock = h.clock.Add(time.Millisecond)
	h.poll()
	assert.Equal(t, []protocol.Message{want}, decodeAll(t, b))
	assert.Equal(t, []protocol.Message{want}, decodeAll(t, a))
}

func TestRunStopsOnCancelAndClosesEverything(t *testing.T) {
	h := newUnstarted(t, 4)
	c := fake.NewConn(10)
	h.ln.Queue(c)

	ctx, cancel := context.WithCancel(context.Background())
	h.re.OnWait = func(n int) {
		switch n {
		case 1:
			h.re.Push(h.re.Readable(h.ln.RawFD()))
		case 3:
			cancel()
		}
	}
	require.NoError(t, h.srv.Run(ctx))
	assert.Equal(t, []protocol.Message{protocol.JoinResponse{ID: 0}}, decodeAll(t, c))
	assert.True(t, c.Closed())
	assert.True(t, h.ln.Closed())
	assert.True(t, h.re.Closed())
	assert.Zero(t, h.srv.table.Len())

	assert.ErrorIs(t, h.srv.Run(context.Background()), ErrAlreadyRunning)
}

func TestPollFailureIsRetried(t *testing.T) {
	h := newUnstarted(t, 4)
	h.re.FailWait(errors.New("epoll broke"), errors.New("epoll broke"))

	ctx, cancel := context.WithCancel(context.Background())
	h.re.OnWait = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	require.NoError(t, h.srv.Run(ctx))
	assert.Equal(t, 3, h.re.Waits())
	assert.Equal(t, float64(2), testutil.ToFloat64(h.metrics.PollErrors))
	assert.True(t, h.re.Closed())
}

func TestRegisterFailureReleasesAndLogsClose(t *testing.T) {
	h := newHarness(t, 4)
	var logs bytes.Buffer
	h.srv.log = slog.New(slog.NewTextHandler(&logs, nil))

	// Reusing the listener's descriptor makes registration fail.
	c := fake.NewConn(h.ln.RawFD())
	c.SetCloseError(errors.New("close boom"))
	h.ln.Queue(c)
	h.poll(h.listenerReady())

	assert.True(t, c.Closed())
	assert.Zero(t, h.srv.table.Len())
	assert.Zero(t, testutil.ToFloat64(h.metrics.Accepted))
	assert.Contains(t, logs.String(), "close boom")
}

func TestNewValidates(t *testing.T) {
	cfg := control.DefaultConfig()
	_, err := New(cfg, fake.NewListener(1), fake.NewReactor())
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	cfg.Port = "1"
	_, err = New(cfg, nil, fake.NewReactor())
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
