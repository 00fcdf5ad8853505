//go:build !linux

// Author: momentics <momentics@gmail.com>

package transport

import (
	"fmt"

	"github.com/momentics/hioload-arena/api"
)

// Listen is only implemented on Linux.
func Listen(port string, backlog int) (api.Listener, error) {
	if _, err := parsePort(port); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("listen: %w on this platform", api.ErrNotSupported)
}
