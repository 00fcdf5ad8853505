//go:build linux

package transport_test

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/internal/transport"
)

func acceptOne(t *testing.T, ln api.Listener) api.NetConn {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := ln.Accept()
		if err == nil {
			return c
		}
		require.ErrorIs(t, err, api.ErrWouldBlock)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no connection accepted")
	return nil
}

func readSome(t *testing.T, c api.NetConn, p []byte) int {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := c.Read(p)
		if errors.Is(err, api.ErrWouldBlock) {
			time.Sleep(time.Millisecond)
			continue
		}
		require.NoError(t, err)
		return n
	}
	t.Fatal("read timed out")
	return 0
}

func TestListenAcceptReadWrite(t *testing.T) {
	ln, err := transport.Listen("0", 0)
	require.NoError(t, err)
	defer ln.Close()

	port, err := transport.Port(ln.Addr())
	require.NoError(t, err)
	require.NotZero(t, port)

	_, err = ln.Accept()
	assert.ErrorIs(t, err, api.ErrWouldBlock, "nothing queued yet")

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer client.Close()

	srv := acceptOne(t, ln)
	defer srv.Close()

	_, err = srv.Read(make([]byte, 8))
	assert.ErrorIs(t, err, api.ErrWouldBlock)

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 16)
	n := readSome(t, srv, buf)
	assert.Equal(t, "ping", string(buf[:n]))

	n, err = srv.Write([]byte("pong"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err = client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))

	require.NoError(t, client.Close())
	assert.Zero(t, readSome(t, srv, buf), "orderly close reads zero bytes")
}

func TestListenRejectsBadPort(t *testing.T) {
	for _, p := range []string{"", "http", "-1", "70000"} {
		_, err := transport.Listen(p, 5)
		assert.ErrorIs(t, err, api.ErrInvalidArgument, p)
	}
}

func TestListenPortInUse(t *testing.T) {
	ln, err := transport.Listen("0", 5)
	require.NoError(t, err)
	defer ln.Close()

	port, _ := transport.Port(ln.Addr())
	_, err = transport.Listen(strconv.Itoa(port), 5)
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeTransport, api.CodeOf(err))
}

func TestClosedListener(t *testing.T) {
	ln, err := transport.Listen("0", 5)
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())
	_, err = ln.Accept()
	assert.ErrorIs(t, err, api.ErrTransportClosed)
}
