// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral helpers shared by the reactor implementations.

package reactor

import "time"

// MaxEvents bounds how many readiness notifications one Wait can return.
const MaxEvents = 128

// timeoutMillis converts a poll timeout to epoll's millisecond argument.
// Sub-millisecond positive timeouts round up so the loop never spins.
func timeoutMillis(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return int(ms)
}
