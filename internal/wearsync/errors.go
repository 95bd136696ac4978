package wearsync

import "errors"

// Sentinel errors for caller misuse. Vendor failures keep their own
// identity (whoop.ErrServiceUnavailable) through wrapping.
var (
	// ErrNotFound means a session or cache row is missing or not owned by
	// the calling user.
	ErrNotFound = errors.New("wearsync: not found")

	// ErrInvalidTime means a session descriptor's local date or "HH:MM"
	// start could not be parsed. An unparseable timezone is not an error —
	// it degrades to UTC.
	ErrInvalidTime = errors.New("wearsync: invalid session time")
)
