package profile

import "errors"

var (
	// ErrNotFound is returned when a job has no recorded baseline
	// measurement for one or more catalog resources (spec §4.3 "not-found").
	ErrNotFound = errors.New("profile: characteristic documents not found")

	// ErrUnavailable is returned after the bounded retry budget is
	// exhausted against a transient store error (spec §4.3 "unavailable").
	ErrUnavailable = errors.New("profile: database unavailable")
)
