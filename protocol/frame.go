// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Arena wire format: length-prefixed binary frames over a stream transport.
//
// Every frame starts with a 6-byte header:
//
//	+--------+--------+--------+--------+---------+------+------------
//	|       total length (uint32, BE)   | version | kind | payload ...
//	+--------+--------+--------+--------+---------+------+------------
//
// The length counts the header itself, so the smallest legal frame is 6 bytes.
// All integers are big-endian; floats travel as their IEEE-754 bit pattern.

package protocol

import (
	"encoding/binary"
	"math"
)

const (
	// Version is the only protocol version this server speaks.
	Version byte = 1

	// HeaderSize is the length field plus the version and kind bytes.
	HeaderSize = 6

	lengthFieldSize = 4
	idSize          = 4
	countSize       = 2
	vec3Size        = 12
	playerStateSize = idSize + vec3Size

	// MaxClientFrame is the longest frame a client may legitimately send.
	MaxClientFrame = HeaderSize + vec3Size
)

// Kind identifies the payload layout of a frame.
type Kind byte

const (
	KindPlayerMove           Kind = 1
	KindPlayerSelfAnnihilate Kind = 2
	KindPlayerSpawn          Kind = 3
	KindJoinResponse         Kind = 4
	KindServerMapUpdate      Kind = 5
	KindPlayerSpawnWithID    Kind = 6
	KindAnnihilationResults  Kind = 7
)

// String returns a stable, metric-label friendly name.
func (k Kind) String() string {
	switch k {
	case KindPlayerMove:
		return "player_move"
	case KindPlayerSelfAnnihilate:
		return "player_self_annihilate"
	case KindPlayerSpawn:
		return "player_spawn"
	case KindJoinResponse:
		return "join_response"
	case KindServerMapUpdate:
		return "server_map_update"
	case KindPlayerSpawnWithID:
		return "player_spawn_with_id"
	case KindAnnihilationResults:
		return "annihilation_results"
	default:
		return "unknown"
	}
}

// Known reports whether k is one of the defined message kinds.
func (k Kind) Known() bool {
	return k >= KindPlayerMove && k <= KindAnnihilationResults
}

// FromClient reports whether k travels client to server.
func (k Kind) FromClient() bool {
	switch k {
	case KindPlayerMove, KindPlayerSelfAnnihilate, KindPlayerSpawn:
		return true
	}
	return false
}

// fixedLength is the total frame length of every fixed-size kind.
var fixedLength = map[Kind]int{
	KindPlayerMove:           HeaderSize + vec3Size,
	KindPlayerSelfAnnihilate: HeaderSize,
	KindPlayerSpawn:          HeaderSize + vec3Size,
	KindJoinResponse:         HeaderSize + idSize,
	KindPlayerSpawnWithID:    HeaderSize + idSize + vec3Size,
}

// MapUpdateLength is the frame length of a map update carrying n players.
func MapUpdateLength(n int) int {
	return HeaderSize + countSize + n*playerStateSize
}

// AnnihilationResultsLength is the frame length of a result listing k kills.
func AnnihilationResultsLength(k int) int {
	return HeaderSize + idSize + countSize + k*idSize
}

// DeclaredLength reads the length prefix. ok is false when fewer than four
// bytes are available.
func DeclaredLength(b []byte) (n uint32, ok bool) {
	if len(b) < lengthFieldSize {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

// Vec3 is a position in the shared 3D space.
type Vec3 struct {
	X, Y, Z float32
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float32 {
	dx := float64(v.X - o.X)
	dy := float64(v.Y - o.Y)
	dz := float64(v.Z - o.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// putFloat32 and float32At are the only places a float touches the wire;
// both move the raw bit pattern, never a converted value.
func putFloat32(b []byte, f float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(f))
}

func float32At(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func putVec3(b []byte, v Vec3) {
	putFloat32(b[0:4], v.X)
	putFloat32(b[4:8], v.Y)
	putFloat32(b[8:12], v.Z)
}

func vec3At(b []byte) Vec3 {
	return Vec3{
		X: float32At(b[0:4]),
		Y: float32At(b[4:8]),
		Z: float32At(b[8:12]),
	}
}
