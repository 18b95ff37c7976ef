package iat

import "errors"

var (
	// ErrDuplicate is returned by Add when pgid is already registered.
	ErrDuplicate = errors.New("iat: pgid already registered")

	// ErrNoCapacity is returned by Add when the slot table is full.
	ErrNoCapacity = errors.New("iat: slot table at capacity")

	// ErrNotFound is returned by Remove when pgid is not registered.
	ErrNotFound = errors.New("iat: pgid not found")
)
