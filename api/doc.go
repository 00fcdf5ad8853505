// Package api holds the contracts and error vocabulary shared by every
// hioload-arena layer: the non-blocking connection abstraction used by the
// reactor, structured errors, and the debug probe hook.
package api
