// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the transport socket abstraction (NetConn) shared by the reactor,
// the session table and the broadcast engine.

package api

// NetConn abstracts a full-duplex, non-blocking stream connection.
//
// Read and Write never block: when the socket is not ready they return
// ErrWouldBlock (possibly wrapped). Read returning (0, nil) means the peer
// closed the connection in an orderly way.
type NetConn interface {
	// Read reads into a preallocated buffer.
	Read(p []byte) (n int, err error)

	// Write writes buffer contents into the connection; short writes are allowed.
	Write(p []byte) (n int, err error)

	// Close shuts down the connection.
	Close() error

	// RawFD returns the underlying OS-level file descriptor.
	RawFD() uintptr
}

// Listener is a passive stream endpoint producing NetConns.
type Listener interface {
	// Accept returns the next pending connection, or ErrWouldBlock if none is queued.
	Accept() (NetConn, error)

	// Close stops listening.
	Close() error

	// RawFD returns the listening socket descriptor.
	RawFD() uintptr

	// Addr returns the bound address in host:port form.
	Addr() string
}
