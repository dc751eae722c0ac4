package api

import "errors"

// Sentinel errors shared by services and handlers. Handlers translate these
// into HTTP statuses; repositories and services wrap them with context via
// fmt.Errorf("...: %w", err).
var (
	// ErrNotFound signals an unknown id or username.
	ErrNotFound = errors.New("requested item not found")
	// ErrConflict signals a uniqueness violation, e.g. a taken username.
	ErrConflict = errors.New("item already exists or conflict")
	// ErrValidation signals a missing required field or an out-of-range value.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is the single undifferentiated login rejection:
	// unknown username and bad password are deliberately not distinguished.
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	// ErrForbidden signals a role mismatch on a mutating call.
	ErrForbidden = errors.New("action forbidden")
	// ErrInternal covers store-level or transient failures surfaced to the
	// caller as a single human-readable message.
	ErrInternal = errors.New("internal error")
)
