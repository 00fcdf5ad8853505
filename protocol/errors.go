// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
)

// Codec failures. Decode and Splitter wrap them in *Error.
var (
	ErrShortFrame       = errors.New("frame shorter than declared length")
	ErrBadVersion       = errors.New("protocol version mismatch")
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrLengthMismatch   = errors.New("declared length does not match message kind")
	ErrFrameTooLarge    = errors.New("frame exceeds receive buffer")
	ErrPayloadTooLarge  = errors.New("payload count exceeds 16-bit field")
	ErrUnsupportedValue = errors.New("unsupported message value")
)

// Error describes a rejected frame.
type Error struct {
	Err      error
	Kind     Kind
	Declared uint32
	Actual   int
}

func (e *Error) Error() string {
	return fmt.Sprintf("protocol: %v (kind=%d declared=%d actual=%d)", e.Err, byte(e.Kind), e.Declared, e.Actual)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason returns a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrShortFrame):
		return "short_frame"
	case errors.Is(err, ErrBadVersion):
		return "bad_version"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrFrameTooLarge):
		return "frame_too_large"
	default:
		return "other"
	}
}
