package watchdog

import "errors"

var (
	// ErrAlreadyPresent is returned by AddPGID when pgid is already watched.
	ErrAlreadyPresent = errors.New("watchdog: pgid already watched")

	// ErrNotFound is returned by RemovePGID/RequestProfile when pgid (or
	// the pgid resolved from a pid) isn't currently watched.
	ErrNotFound = errors.New("watchdog: pgid not watched")

	// ErrInvalidThreshold is returned by SetThreshold for non-positive
	// values.
	ErrInvalidThreshold = errors.New("watchdog: threshold must be positive")

	// ErrEndpointFull is returned when the notify endpoint's channel is
	// full; the caller re-arms need_send_request for the next tick.
	ErrEndpointFull = errors.New("watchdog: notify endpoint full")
)
