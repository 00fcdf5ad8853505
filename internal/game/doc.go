// File: internal/game/doc.go
// Package game
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Game rules on top of the session table: greeting new connections,
// applying client messages, chain-reaction annihilation and the periodic
// authoritative map update. A Game is driven by exactly one goroutine, the
// server loop. Other goroutines observe it only through Snapshot and the
// optional map-frame feed.

package game
