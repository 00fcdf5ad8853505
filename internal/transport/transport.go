// Package transport
// Author: momentics <momentics@gmail.com>
//
// Platform-independent parts of the socket layer.

package transport

import (
	"fmt"
	"net"
	"strconv"

	"github.com/momentics/hioload-arena/api"
)

// DefaultBacklog is the listen queue length.
const DefaultBacklog = 5

// parsePort validates a decimal TCP port. "0" asks the kernel for any port.
func parsePort(port string) (int, error) {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return 0, fmt.Errorf("port %q: %w", port, api.ErrInvalidArgument)
	}
	return p, nil
}

// Port extracts the numeric port from an Addr result.
func Port(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}
