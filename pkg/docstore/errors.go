package docstore

import "errors"

var (
	// ErrNotFound is returned when a lookup (model, job prefix scan) has
	// no matching rows.
	ErrNotFound = errors.New("docstore: not found")

	// ErrClosed is returned on use of a Store after Close.
	ErrClosed = errors.New("docstore: store closed")
)
