package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// ValveController is the slice of the device gateway the lifecycle needs:
// the ability to flip a device datapoint.
type ValveController interface {
	SendCommand(ctx context.Context, deviceID, code string, value any) error
}

// StartParams describes a session to start.
//
// Minutes sets the scheduled runtime for automated and scheduled triggers.
// Manual sessions are open-ended (stopped only by an explicit stop) and
// must pass zero.
type StartParams struct {
	ZoneID        string
	DeviceID      string
	Trigger       TriggerKind
	Minutes       int
	Justification string
}

// Manager coordinates session rows with valve hardware.
//
// The ordering rules matter:
//   - Start: claim the zone in the database first, then open the valve.
//     A failed valve command releases the claim.
//   - Stop: close the valve first, then end the row. A failed valve
//     command leaves the session active so the next stop check retries.
type Manager struct {
	repo          Repository
	valves        ValveController
	switchCode    string
	staleAfter    time.Duration
	staleEstimate time.Duration
	logger        *logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewManager creates a session lifecycle manager.
//
// Parameters:
//   - repo: Session persistence
//   - valves: Device gateway client (or fake in tests)
//   - switchCode: Datapoint code of the valve switch
//   - staleAfter: Age beyond which an active session is treated as stale
//   - staleEstimate: Assumed runtime recorded when closing a stale session
//   - logger: Structured logger
func NewManager(repo Repository, valves ValveController, switchCode string, staleAfter, staleEstimate time.Duration, logger *logging.Logger) *Manager {
	return &Manager{
		repo:          repo,
		valves:        valves,
		switchCode:    switchCode,
		staleAfter:    staleAfter,
		staleEstimate: staleEstimate,
		logger:        logger.With("component", "session"),
		now:           time.Now,
	}
}

// Start claims the zone and opens the valve.
//
// Returns ErrSessionActive when the zone is already watering,
// ErrInvalidTrigger or ErrInvalidDuration for bad parameters, and the valve
// error (with the claim released) when the hardware command fails.
func (m *Manager) Start(ctx context.Context, p StartParams) (*WateringSession, error) {
	if !p.Trigger.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTrigger, p.Trigger)
	}

	now := m.now().UTC()

	sess := &WateringSession{
		ID:        uuid.New().String(),
		ZoneID:    p.ZoneID,
		DeviceID:  p.DeviceID,
		Trigger:   p.Trigger,
		StartedAt: now,
		CreatedAt: now,
	}
	if p.Justification != "" {
		sess.Justification = &p.Justification
	}

	// Only automated and scheduled sessions carry a scheduled end; a manual
	// session runs until an explicit stop, so the stop sweep must not see a
	// deadline on it.
	switch p.Trigger {
	case TriggerAutomated, TriggerScheduled:
		if p.Minutes <= 0 {
			return nil, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, p.Minutes)
		}
		end := now.Add(time.Duration(p.Minutes) * time.Minute)
		sess.ScheduledEndAt = &end
	case TriggerManual:
		if p.Minutes != 0 {
			return nil, fmt.Errorf("%w: manual sessions are open-ended, got %d minutes",
				ErrInvalidDuration, p.Minutes)
		}
	}

	// The insert is the atomic claim; losing the race returns ErrSessionActive.
	if err := m.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	if err := m.valves.SendCommand(ctx, p.DeviceID, m.switchCode, true); err != nil {
		// Release the claim so the next trigger can retry.
		if closeErr := m.repo.Close(ctx, sess.ID, m.now().UTC()); closeErr != nil {
			m.logger.Error("releasing claim after valve failure",
				"session_id", sess.ID, "zone_id", p.ZoneID, "error", closeErr)
		}
		return nil, fmt.Errorf("opening valve for zone %s: %w", p.ZoneID, err)
	}

	m.logger.Info("watering session started",
		"session_id", sess.ID,
		"zone_id", p.ZoneID,
		"trigger", string(p.Trigger),
		"duration_minutes", p.Minutes,
		"open_ended", sess.ScheduledEndAt == nil)

	return sess, nil
}

// Stop closes the valve and ends the zone's active session.
//
// Returns ErrNoActiveSession when the zone is idle. If the valve command
// fails the session stays active and the error is returned; the next stop
// check retries.
func (m *Manager) Stop(ctx context.Context, zoneID string) (*WateringSession, error) {
	sess, err := m.repo.ActiveByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	return m.stopSession(ctx, sess)
}

// StopOverdue ends every active session past its scheduled end.
//
// Returns the sessions that were successfully stopped. A valve failure on
// one zone does not prevent stopping the others; the first error is
// returned alongside the stopped list.
func (m *Manager) StopOverdue(ctx context.Context) ([]WateringSession, error) {
	overdue, err := m.repo.OverdueActive(ctx, m.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("listing overdue sessions: %w", err)
	}

	var stopped []WateringSession
	var firstErr error
	for i := range overdue {
		closed, err := m.stopSession(ctx, &overdue[i])
		if err != nil {
			m.logger.Error("stopping overdue session",
				"session_id", overdue[i].ID, "zone_id", overdue[i].ZoneID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stopped = append(stopped, *closed)
	}

	return stopped, firstErr
}

// ReconcileStale closes active sessions older than the stale cutoff.
//
// A stale session means a stop never landed: a crash with the valve open,
// a dropped stop request, or hardware auto-off firing silently. The true
// stop time is unknown, so the row is closed with a configured estimated
// runtime instead. No device command is sent; the physical valve is either
// already off or will be corrected by the next stop check. This trades
// duration precision for unblocking future starts on the zone.
func (m *Manager) ReconcileStale(ctx context.Context) ([]WateringSession, error) {
	cutoff := m.now().UTC().Add(-m.staleAfter)
	stale, err := m.repo.StaleActive(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale sessions: %w", err)
	}

	var closed []WateringSession
	for i := range stale {
		sess := &stale[i]

		endedAt := sess.StartedAt.Add(m.staleEstimate)
		if err := m.repo.Close(ctx, sess.ID, endedAt); err != nil {
			m.logger.Error("closing stale session",
				"session_id", sess.ID, "zone_id", sess.ZoneID, "error", err)
			continue
		}

		m.logger.Warn("stale session reconciled with estimated duration",
			"session_id", sess.ID,
			"zone_id", sess.ZoneID,
			"started_at", sess.StartedAt,
			"estimated_minutes", m.staleEstimate.Minutes(),
			"age_hours", m.now().UTC().Sub(sess.StartedAt).Hours())

		duration := int(m.staleEstimate.Seconds())
		sess.EndedAt = &endedAt
		sess.DurationSeconds = &duration
		closed = append(closed, *sess)
	}

	return closed, nil
}

// stopSession closes the valve then ends the row.
func (m *Manager) stopSession(ctx context.Context, sess *WateringSession) (*WateringSession, error) {
	if err := m.valves.SendCommand(ctx, sess.DeviceID, m.switchCode, false); err != nil {
		return nil, fmt.Errorf("closing valve for zone %s: %w", sess.ZoneID, err)
	}

	endedAt := m.now().UTC()
	if err := m.repo.Close(ctx, sess.ID, endedAt); err != nil {
		return nil, err
	}

	m.logger.Info("watering session stopped",
		"session_id", sess.ID,
		"zone_id", sess.ZoneID,
		"duration_seconds", int(endedAt.Sub(sess.StartedAt).Seconds()))

	// Re-read for the recorded duration.
	return m.repo.GetByID(ctx, sess.ID)
}
