// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness poller behind the game loop: a
// level-triggered Linux epoll implementation of api.Reactor and a stub for
// platforms without one.
package reactor
