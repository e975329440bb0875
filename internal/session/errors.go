package session

import "errors"

// Domain errors for session lifecycle and persistence.
var (
	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionActive is returned when starting a session for a zone that
	// already has an active one. This is the one-active-per-zone invariant
	// surfacing from the database.
	ErrSessionActive = errors.New("session: zone already has an active session")

	// ErrNoActiveSession is returned when stopping a zone with no active
	// session. Callers treat this as an idempotent no-op.
	ErrNoActiveSession = errors.New("session: no active session for zone")

	// ErrInvalidTrigger is returned for trigger kinds outside the known set.
	ErrInvalidTrigger = errors.New("session: invalid trigger kind")

	// ErrInvalidDuration is returned when a session is started with a
	// non-positive duration.
	ErrInvalidDuration = errors.New("session: duration must be positive")
)
