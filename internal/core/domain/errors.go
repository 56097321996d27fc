package domain

import "errors"

var (
	// ErrInvalidArgument marks input that fails validation. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a catalog entry does not exist.
	ErrNotFound = errors.New("not found")
)
