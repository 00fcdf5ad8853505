package protocol_test

import (
	"testing"

	"github.com/momentics/hioload-arena/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(s *protocol.Splitter, data []byte) {
	for len(data) > 0 {
		n := copy(s.Free(), data)
		s.Commit(n)
		data = data[n:]
	}
}

func drain(t *testing.T, s *protocol.Splitter) []protocol.Message {
	t.Helper()
	var out []protocol.Message
	for {
		frame, err := s.Next()
		require.NoError(t, err)
		if frame == nil {
			return out
		}
		msg, err := protocol.Decode(frame)
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestSplitterCoalescedFrames(t *testing.T) {
	s := protocol.NewSplitter(1024)
	spawn, _ := protocol.Encode(protocol.PlayerSpawn{Pos: protocol.Vec3{X: 1}})
	move, _ := protocol.Encode(protocol.PlayerMove{Pos: protocol.Vec3{Y: 2}})
	boom, _ := protocol.Encode(protocol.PlayerSelfAnnihilate{})

	var stream []byte
	stream = append(stream, spawn...)
	stream = append(stream, move...)
	stream = append(stream, boom...)
	feed(s, stream)

	msgs := drain(t, s)
	require.Len(t, msgs, 3)
	assert.Equal(t, protocol.KindPlayerSpawn, msgs[0].Kind())
	assert.Equal(t, protocol.KindPlayerMove, msgs[1].Kind())
	assert.Equal(t, protocol.KindPlayerSelfAnnihilate, msgs[2].Kind())
	assert.Zero(t, s.Buffered())
}

func TestSplitterPartialFrame(t *testing.T) {
	s := protocol.NewSplitter(64)
	move, _ := protocol.Encode(protocol.PlayerMove{Pos: protocol.Vec3{X: 3, Y: 4, Z: 5}})

	for i := 0; i < len(move)-1; i++ {
		feed(s, move[i:i+1])
		frame, err := s.Next()
		require.NoError(t, err)
		require.Nil(t, frame, "frame surfaced after %d bytes", i+1)
	}
	feed(s, move[len(move)-1:])

	msgs := drain(t, s)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.PlayerMove{Pos: protocol.Vec3{X: 3, Y: 4, Z: 5}}, msgs[0])
}

func TestSplitterCompactsAcrossReads(t *testing.T) {
	s := protocol.NewSplitter(24)
	move, _ := protocol.Encode(protocol.PlayerMove{})

	// 18 + 6 bytes fill the buffer; the second frame is split across reads.
	feed(s, move)
	feed(s, move[:6])
	require.Len(t, drain(t, s), 1)

	feed(s, move[6:])
	require.Len(t, drain(t, s), 1)
}

func TestSplitterRejectsOversizedFrame(t *testing.T) {
	s := protocol.NewSplitter(16)
	move, _ := protocol.Encode(protocol.PlayerMove{})

	feed(s, move[:16])
	frame, err := s.Next()
	assert.Nil(t, frame)
	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
	assert.Zero(t, s.Buffered())
}

func TestSplitterRejectsImpossibleLength(t *testing.T) {
	s := protocol.NewSplitter(64)
	feed(s, []byte{0, 0, 0, 2, 1, 1})

	_, err := s.Next()
	assert.ErrorIs(t, err, protocol.ErrShortFrame)
	assert.Zero(t, s.Buffered())
}

func TestSplitterPassesBadFramesToDecode(t *testing.T) {
	s := protocol.NewSplitter(64)
	feed(s, []byte{0, 0, 0, 6, protocol.Version, 77})

	frame, err := s.Next()
	require.NoError(t, err)
	_, err = protocol.Decode(frame)
	assert.ErrorIs(t, err, protocol.ErrUnknownKind)
}
