package repositories

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a guarded write matched no row in the expected
	// state, or when an insert violated a uniqueness constraint.
	ErrConflict = errors.New("state conflict")
)
