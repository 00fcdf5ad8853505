// File: internal/broadcast/retry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded immediate-retry policy shared by writes, accepts and join replies.

package broadcast

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-arena/api"
)

// DefaultAttempts is the number of tries made before a transfer is abandoned.
const DefaultAttempts = 3

// errShortWrite marks a write that accepted only part of the buffer.
// It wraps ErrWouldBlock so the default classifier treats it as transient.
var errShortWrite = fmt.Errorf("short write: %w", api.ErrWouldBlock)

// RetryPolicy bounds how many times an operation is attempted.
// Retries are immediate: the loop must not stall other sessions.
type RetryPolicy struct {
	Attempts int

	// Retryable classifies an error as worth another attempt.
	// Nil selects Transient.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns a policy with DefaultAttempts and the
// Transient classifier.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultAttempts}
}

// Transient reports whether err is a would-block condition.
func Transient(err error) bool {
	return errors.Is(err, api.ErrWouldBlock)
}

// Do calls fn until it returns nil, returns a non-retryable error, or the
// attempts run out. Exhaustion is reported as ErrRetriesExhausted wrapping
// the last error.
func (p RetryPolicy) Do(fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = Transient
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", api.ErrRetriesExhausted, attempts, err)
}
