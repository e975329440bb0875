package session

import "time"

// TriggerKind identifies what initiated a watering session.
type TriggerKind string

// Trigger kinds.
const (
	// TriggerManual is an operator-initiated session (API call).
	TriggerManual TriggerKind = "manual"

	// TriggerScheduled is a session started by the time-based scheduler
	// without a policy decision (fixed schedule fallback).
	TriggerScheduled TriggerKind = "scheduled"

	// TriggerAutomated is a session started by the decision policy.
	TriggerAutomated TriggerKind = "automated"
)

// Valid reports whether the trigger kind is one of the known values.
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerManual, TriggerScheduled, TriggerAutomated:
		return true
	}
	return false
}

// WateringSession is one valve on/off interval for a zone.
//
// EndedAt nil means the session is active. DurationSeconds is set when the
// session closes and records actual (not scheduled) runtime. ScheduledEndAt
// is set for automated and scheduled sessions only; manual sessions are
// open-ended and carry nil.
type WateringSession struct {
	ID              string      `json:"id"`
	ZoneID          string      `json:"zone_id"`
	DeviceID        string      `json:"device_id"`
	Trigger         TriggerKind `json:"trigger"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         *time.Time  `json:"ended_at,omitempty"`
	DurationSeconds *int        `json:"duration_seconds,omitempty"`
	ScheduledEndAt  *time.Time  `json:"scheduled_end_at,omitempty"`
	Justification   *string     `json:"justification,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Active reports whether the session is still running.
func (s *WateringSession) Active() bool {
	return s.EndedAt == nil
}

// Overdue reports whether an active session has passed its scheduled end.
// Sessions without a scheduled end are never overdue.
func (s *WateringSession) Overdue(now time.Time) bool {
	return s.Active() && s.ScheduledEndAt != nil && !now.Before(*s.ScheduledEndAt)
}
