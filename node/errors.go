package node

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Node operations. readyGate returns
// ErrNodeNotConnected while the node is Disconnected (never opened,
// disconnected, closed, or out of reconnect attempts) and ErrNodeNotReady
// in every other state without a session (Connecting, Reconnecting, or
// Connected without a session id). ErrNodeNotConnected wraps
// ErrNodeNotReady, so errors.Is(err, ErrNodeNotReady) holds for both.
var (
	ErrNodeNotConnected   = fmt.Errorf("%w: socket not connected", ErrNodeNotReady)
	ErrNodeNotReady       = errors.New("node: not ready")
	ErrTrackLoadFailed    = errors.New("node: track load failed")
	ErrTimeout            = errors.New("node: request timed out")
	ErrWebSocket          = errors.New("node: websocket error")
	ErrPluginNotInstalled = errors.New("node: plugin not installed")
)

// RestError is returned when a REST call to the node responds with a
// non-2xx status. Status carries the HTTP status code; Message is the
// best-effort decoded body ("message" field on the Lavalink error schema).
type RestError struct {
	Status  int
	Message string
}

func (e *RestError) Error() string {
	return fmt.Sprintf("node: rest error (status %d): %s", e.Status, e.Message)
}

// Is allows errors.Is(err, &RestError{}) style matching to succeed purely on
// type, following the reference codebase's sentinel-plus-wrap convention.
func (e *RestError) Is(target error) bool {
	_, ok := target.(*RestError)
	return ok
}
