package store

import "errors"

// Sentinel error kinds returned by every repository method. Handlers map
// these to HTTP status codes at the API boundary; nothing below this layer
// should leak a driver error string to a client.
var (
	ErrNotFound  = errors.New("store: not found")
	ErrConflict  = errors.New("store: conflict")
	ErrTransient = errors.New("store: transient failure")
	ErrFrozen    = errors.New("store: submission is frozen")
)
