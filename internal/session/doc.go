// Package session
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity player session table.
// Each Session maps to one connected client; its slot index is the player ID
// clients see on the wire, so IDs are handed out lowest-free-slot first and
// reused deterministically after a disconnect.
//
// The table is owned by the reactor goroutine and is not safe for concurrent
// use. Callers keep IDs, never *Session pointers, across dispatch calls.

package session
