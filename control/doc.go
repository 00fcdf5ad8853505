// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for the arena.
//
// Provides:
//   - Config loaded from YAML with defaults and validation
//   - ConfigStore holding the active Config with reload listeners
//   - Prometheus collectors for sessions, messages and broadcasts
//   - DebugProbes for named state dumps served by the admin surface
package control
