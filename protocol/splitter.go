// File: protocol/splitter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection receive staging. TCP does not preserve message boundaries,
// so one read may carry several frames or a fraction of one.

package protocol

// Splitter stages inbound bytes in a fixed buffer and cuts complete frames
// out of them using the length prefix.
//
// Usage on every readable event:
//
//	n, err := conn.Read(s.Free())
//	s.Commit(n)
//	for {
//		frame, err := s.Next()
//		if frame == nil && err == nil {
//			break // need more bytes
//		}
//		...
//	}
//
// A frame returned by Next is valid until the following call to Free.
type Splitter struct {
	buf   []byte
	start int
	end   int
}

// NewSplitter allocates a splitter whose staging buffer holds size bytes.
// size also bounds the largest acceptable frame.
func NewSplitter(size int) *Splitter {
	if size < HeaderSize {
		size = HeaderSize
	}
	return &Splitter{buf: make([]byte, size)}
}

// Cap returns the staging capacity.
func (s *Splitter) Cap() int {
	return len(s.buf)
}

// Buffered returns the number of staged bytes not yet returned as frames.
func (s *Splitter) Buffered() int {
	return s.end - s.start
}

// Free compacts staged bytes to the front and returns the writable tail.
func (s *Splitter) Free() []byte {
	if s.start > 0 {
		n := copy(s.buf, s.buf[s.start:s.end])
		s.start, s.end = 0, n
	}
	return s.buf[s.end:]
}

// Commit records n bytes written into the slice returned by Free.
func (s *Splitter) Commit(n int) {
	if n <= 0 {
		return
	}
	if s.end+n > len(s.buf) {
		n = len(s.buf) - s.end
	}
	s.end += n
}

// Next returns the next complete frame. It returns (nil, nil) when more bytes
// are needed. A length prefix that can never be satisfied (below the header
// size or above the staging capacity) discards everything staged and is
// reported as an *Error.
func (s *Splitter) Next() ([]byte, error) {
	staged := s.buf[s.start:s.end]
	declared, ok := DeclaredLength(staged)
	if !ok {
		return nil, nil
	}
	if declared < HeaderSize {
		s.Reset()
		return nil, &Error{Err: ErrShortFrame, Declared: declared, Actual: len(staged)}
	}
	if uint64(declared) > uint64(len(s.buf)) {
		s.Reset()
		return nil, &Error{Err: ErrFrameTooLarge, Declared: declared, Actual: len(s.buf)}
	}
	if uint64(len(staged)) < uint64(declared) {
		return nil, nil
	}
	frame := staged[:declared]
	s.start += int(declared)
	if s.start == s.end {
		s.start, s.end = 0, 0
	}
	return frame, nil
}

// Reset drops all staged bytes.
func (s *Splitter) Reset() {
	s.start, s.end = 0, 0
}
