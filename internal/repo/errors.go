package repo

import "errors"

// Domain errors translated from storage signals. Handlers map these to HTTP statuses.
var (
	// ErrNotFound covers both "row does not exist" and "row belongs to another
	// owner" so callers cannot leak existence across users.
	ErrNotFound = errors.New("not found")

	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
)
