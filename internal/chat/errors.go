package chat

import "errors"

var (
	// ErrConnectionNotFound rejects operations referencing a token with no
	// live registry row.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrStoreUnavailable wraps persistent-store failures. Single-row writes
	// are atomic, so callers may retry the whole event.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrValidation rejects an event before any store access.
	ErrValidation = errors.New("validation failed")
)
