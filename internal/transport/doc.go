// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking TCP sockets for the game loop. Listen binds a dual-stack
// listening socket when the host supports IPv6 and falls back to IPv4
// otherwise. Accepted connections are raw descriptors whose Read and Write
// report ErrWouldBlock instead of parking a goroutine, so the single loop
// goroutine can multiplex every session through the reactor.

package transport
