// File: protocol/frame_codec.go
// Package protocol implements the arena frame codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Encode always derives the length prefix from the bytes it produced.
// Decode validates length, version, kind and the per-kind layout before
// touching the payload.

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxListed is the largest number of records a 16-bit count field can carry.
const MaxListed = math.MaxUint16

// Encode serializes m into a new frame.
func Encode(m Message) ([]byte, error) {
	return AppendEncode(nil, m)
}

// AppendEncode appends the frame for m to dst and returns the extended slice.
func AppendEncode(dst []byte, m Message) ([]byte, error) {
	start := len(dst)
	dst = append(dst, 0, 0, 0, 0, Version, byte(m.Kind()))

	switch v := m.(type) {
	case PlayerMove:
		dst = appendVec3(dst, v.Pos)
	case PlayerSelfAnnihilate:
	case PlayerSpawn:
		dst = appendVec3(dst, v.Pos)
	case JoinResponse:
		dst = binary.BigEndian.AppendUint32(dst, v.ID)
	case ServerMapUpdate:
		return appendMapUpdate(dst, start, v.Players)
	case PlayerSpawnWithID:
		dst = binary.BigEndian.AppendUint32(dst, v.ID)
		dst = appendVec3(dst, v.Pos)
	case AnnihilationResults:
		return appendResults(dst, start, v.ID, v.Killed)
	default:
		return dst[:start], fmt.Errorf("encode %T: %w", m, ErrUnsupportedValue)
	}
	return finish(dst, start), nil
}

func appendMapUpdate(dst []byte, start int, players []PlayerState) ([]byte, error) {
	if len(players) > MaxListed {
		return dst[:start], &Error{Err: ErrPayloadTooLarge, Kind: KindServerMapUpdate, Actual: len(players)}
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(players)))
	for _, p := range players {
		dst = binary.BigEndian.AppendUint32(dst, p.ID)
		dst = appendVec3(dst, p.Pos)
	}
	return finish(dst, start), nil
}

func appendResults(dst []byte, start int, id uint32, killed []uint32) ([]byte, error) {
	if len(killed) > MaxListed {
		return dst[:start], &Error{Err: ErrPayloadTooLarge, Kind: KindAnnihilationResults, Actual: len(killed)}
	}
	dst = binary.BigEndian.AppendUint32(dst, id)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(killed)))
	for _, k := range killed {
		dst = binary.BigEndian.AppendUint32(dst, k)
	}
	return finish(dst, start), nil
}

func appendVec3(dst []byte, v Vec3) []byte {
	var b [vec3Size]byte
	putVec3(b[:], v)
	return append(dst, b[:]...)
}

// finish writes the length prefix of the frame beginning at start.
func finish(dst []byte, start int) []byte {
	binary.BigEndian.PutUint32(dst[start:], uint32(len(dst)-start))
	return dst
}

// Decode parses the frame at the beginning of b. Bytes past the declared
// length are ignored; they belong to the next frame.
func Decode(b []byte) (Message, error) {
	declared, ok := DeclaredLength(b)
	if !ok || declared < HeaderSize {
		return nil, &Error{Err: ErrShortFrame, Declared: declared, Actual: len(b)}
	}
	if uint64(len(b)) < uint64(declared) {
		return nil, &Error{Err: ErrShortFrame, Declared: declared, Actual: len(b)}
	}
	frame := b[:declared]
	kind := Kind(frame[5])
	if frame[4] != Version {
		return nil, &Error{Err: ErrBadVersion, Kind: kind, Declared: declared, Actual: len(frame)}
	}
	if !kind.Known() {
		return nil, &Error{Err: ErrUnknownKind, Kind: kind, Declared: declared, Actual: len(frame)}
	}
	if want, fixed := fixedLength[kind]; fixed && int(declared) != want {
		return nil, &Error{Err: ErrLengthMismatch, Kind: kind, Declared: declared, Actual: want}
	}

	body := frame[HeaderSize:]
	switch kind {
	case KindPlayerMove:
		return PlayerMove{Pos: vec3At(body)}, nil
	case KindPlayerSelfAnnihilate:
		return PlayerSelfAnnihilate{}, nil
	case KindPlayerSpawn:
		return PlayerSpawn{Pos: vec3At(body)}, nil
	case KindJoinResponse:
		return JoinResponse{ID: binary.BigEndian.Uint32(body)}, nil
	case KindPlayerSpawnWithID:
		return PlayerSpawnWithID{ID: binary.BigEndian.Uint32(body), Pos: vec3At(body[idSize:])}, nil
	case KindServerMapUpdate:
		return decodeMapUpdate(body, declared)
	default:
		return decodeResults(body, declared)
	}
}

func decodeMapUpdate(body []byte, declared uint32) (Message, error) {
	if len(body) < countSize {
		return nil, &Error{Err: ErrLengthMismatch, Kind: KindServerMapUpdate, Declared: declared, Actual: MapUpdateLength(0)}
	}
	n := int(binary.BigEndian.Uint16(body))
	if want := MapUpdateLength(n); int(declared) != want {
		return nil, &Error{Err: ErrLengthMismatch, Kind: KindServerMapUpdate, Declared: declared, Actual: want}
	}
	players := make([]PlayerState, n)
	rec := body[countSize:]
	for i := range players {
		players[i] = PlayerState{
			ID:  binary.BigEndian.Uint32(rec),
			Pos: vec3At(rec[idSize:]),
		}
		rec = rec[playerStateSize:]
	}
	return ServerMapUpdate{Players: players}, nil
}

func decodeResults(body []byte, declared uint32) (Message, error) {
	if len(body) < idSize+countSize {
		return nil, &Error{Err: ErrLengthMismatch, Kind: KindAnnihilationResults, Declared: declared, Actual: AnnihilationResultsLength(0)}
	}
	k := int(binary.BigEndian.Uint16(body[idSize:]))
	if want := AnnihilationResultsLength(k); int(declared) != want {
		return nil, &Error{Err: ErrLengthMismatch, Kind: KindAnnihilationResults, Declared: declared, Actual: want}
	}
	res := AnnihilationResults{
		ID:     binary.BigEndian.Uint32(body),
		Killed: make([]uint32, k),
	}
	ids := body[idSize+countSize:]
	for i := range res.Killed {
		res.Killed[i] = binary.BigEndian.Uint32(ids[i*idSize:])
	}
	return res, nil
}
