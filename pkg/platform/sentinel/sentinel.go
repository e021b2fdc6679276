package sentinel

import "errors"

// Sentinel store errors. Stores return these (optionally wrapped) so the
// registry service can translate them into domain errors exactly once.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflicting concurrent modification")
	ErrAlreadySet  = errors.New("already set")
	ErrUnavailable = errors.New("unavailable")
)
