// Package session owns the watering-session lifecycle and its persistence.
//
// A watering session is one valve on/off interval for a zone. Sessions are
// append-only history rows; the row with a NULL end time is the zone's
// active session. The core invariant is at most one active session per
// zone, enforced in the database by a partial unique index so concurrent
// starts resolve atomically rather than by check-then-act.
//
// # Lifecycle
//
// Start claims the zone by inserting the session row, then opens the valve.
// If the valve command fails the claim is released immediately, so a later
// trigger can retry. Stop reverses the order: the valve is closed first and
// the row only then marked ended, so a failed valve command leaves the
// session active and a later stop attempt retries the hardware.
//
// Sessions carry a scheduled end time; the scheduler's stop check closes
// any active session past it. Sessions that have somehow run far beyond
// their schedule (process crash with the valve open) are reconciled by
// ReconcileStale.
package session
