// File: protocol/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-memory message values, one type per wire kind.

package protocol

// Message is implemented by every decoded or encodable frame body.
type Message interface {
	Kind() Kind
}

// PlayerMove reports the sender's new position. Client to server.
type PlayerMove struct {
	Pos Vec3
}

// PlayerSelfAnnihilate asks the server to detonate the sender. Client to server.
type PlayerSelfAnnihilate struct{}

// PlayerSpawn places the sender in the world. Client to server.
type PlayerSpawn struct {
	Pos Vec3
}

// JoinResponse tells a freshly connected client its session ID.
type JoinResponse struct {
	ID uint32
}

// PlayerState is one record of a map update.
type PlayerState struct {
	ID  uint32
	Pos Vec3
}

// ServerMapUpdate is the periodic snapshot of every alive player.
type ServerMapUpdate struct {
	Players []PlayerState
}

// PlayerSpawnWithID announces a spawn to every other client.
type PlayerSpawnWithID struct {
	ID  uint32
	Pos Vec3
}

// AnnihilationResults announces a detonation and everyone it took out.
type AnnihilationResults struct {
	ID     uint32
	Killed []uint32
}

func (PlayerMove) Kind() Kind           { return KindPlayerMove }
func (PlayerSelfAnnihilate) Kind() Kind { return KindPlayerSelfAnnihilate }
func (PlayerSpawn) Kind() Kind          { return KindPlayerSpawn }
func (JoinResponse) Kind() Kind         { return KindJoinResponse }
func (ServerMapUpdate) Kind() Kind      { return KindServerMapUpdate }
func (PlayerSpawnWithID) Kind() Kind    { return KindPlayerSpawnWithID }
func (AnnihilationResults) Kind() Kind  { return KindAnnihilationResults }
