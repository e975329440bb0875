package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for session persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Create inserts a new session row, claiming the zone.
	// Returns ErrSessionActive if the zone already has an active session.
	Create(ctx context.Context, sess *WateringSession) error

	// GetByID retrieves a session by its unique identifier.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id string) (*WateringSession, error)

	// ActiveByZone retrieves the zone's active session.
	// Returns ErrNoActiveSession if the zone is idle.
	ActiveByZone(ctx context.Context, zoneID string) (*WateringSession, error)

	// Close marks a session ended and records its actual duration.
	// Returns ErrSessionNotFound if the session does not exist or is
	// already closed.
	Close(ctx context.Context, id string, endedAt time.Time) error

	// OverdueActive lists active sessions whose scheduled end has passed.
	OverdueActive(ctx context.Context, now time.Time) ([]WateringSession, error)

	// StaleActive lists active sessions started before the cutoff,
	// regardless of scheduled end. These indicate a crash with the valve
	// open or a lost stop.
	StaleActive(ctx context.Context, cutoff time.Time) ([]WateringSession, error)

	// RecentByZone lists the zone's sessions started at or after since,
	// newest first. Used for decision context and the sessions API.
	RecentByZone(ctx context.Context, zoneID string, since time.Time) ([]WateringSession, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sessionColumns = `id, zone_id, device_id, trigger, started_at, ended_at,
	duration_seconds, scheduled_end_at, justification, created_at`

// Create inserts a new session row, claiming the zone.
//
// The one-active-per-zone invariant is enforced by a partial unique index
// on zone_id WHERE ended_at IS NULL, so the insert itself is the atomic
// claim. A constraint violation means another start won the race.
func (r *SQLiteRepository) Create(ctx context.Context, sess *WateringSession) error {
	query := `
		INSERT INTO watering_sessions (
			id, zone_id, device_id, trigger, started_at, ended_at,
			duration_seconds, scheduled_end_at, justification, created_at
		) VALUES (?, ?, ?, ?, ?, NULL, NULL, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		sess.ID,
		sess.ZoneID,
		sess.DeviceID,
		string(sess.Trigger),
		sess.StartedAt.UTC().Format(time.RFC3339),
		nullableTime(sess.ScheduledEndAt),
		nullableString(sess.Justification),
		sess.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSessionActive
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*WateringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM watering_sessions WHERE id = ?`

	sess, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session by id: %w", err)
	}
	return sess, nil
}

// ActiveByZone retrieves the zone's active session.
func (r *SQLiteRepository) ActiveByZone(ctx context.Context, zoneID string) (*WateringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM watering_sessions
		WHERE zone_id = ? AND ended_at IS NULL`

	sess, err := scanSession(r.db.QueryRowContext(ctx, query, zoneID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return sess, nil
}

// Close marks a session ended and records its actual duration.
func (r *SQLiteRepository) Close(ctx context.Context, id string, endedAt time.Time) error {
	query := `
		UPDATE watering_sessions
		SET ended_at = ?,
			duration_seconds = CAST((julianday(?) - julianday(started_at)) * 86400 AS INTEGER)
		WHERE id = ? AND ended_at IS NULL`

	ended := endedAt.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query, ended, ended, id)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking close result: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// OverdueActive lists active sessions whose scheduled end has passed.
func (r *SQLiteRepository) OverdueActive(ctx context.Context, now time.Time) ([]WateringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM watering_sessions
		WHERE ended_at IS NULL AND scheduled_end_at IS NOT NULL AND scheduled_end_at <= ?
		ORDER BY scheduled_end_at`

	return r.querySessions(ctx, query, now.UTC().Format(time.RFC3339))
}

// StaleActive lists active sessions started before the cutoff.
func (r *SQLiteRepository) StaleActive(ctx context.Context, cutoff time.Time) ([]WateringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM watering_sessions
		WHERE ended_at IS NULL AND started_at < ?
		ORDER BY started_at`

	return r.querySessions(ctx, query, cutoff.UTC().Format(time.RFC3339))
}

// RecentByZone lists the zone's sessions started at or after since, newest first.
func (r *SQLiteRepository) RecentByZone(ctx context.Context, zoneID string, since time.Time) ([]WateringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM watering_sessions
		WHERE zone_id = ? AND started_at >= ?
		ORDER BY started_at DESC`

	return r.querySessions(ctx, query, zoneID, since.UTC().Format(time.RFC3339))
}

// querySessions executes a query returning multiple session rows.
func (r *SQLiteRepository) querySessions(ctx context.Context, query string, args ...any) ([]WateringSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var sessions []WateringSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

// scanner abstracts sql.Row and sql.Rows for scanSession.
type scanner interface {
	Scan(dest ...any) error
}

// scanSession converts a database row into a WateringSession.
func scanSession(row scanner) (*WateringSession, error) {
	var sess WateringSession
	var trigger string
	var startedAt, createdAt string
	var endedAt, scheduledEndAt, justification sql.NullString
	var durationSeconds sql.NullInt64

	err := row.Scan(
		&sess.ID,
		&sess.ZoneID,
		&sess.DeviceID,
		&trigger,
		&startedAt,
		&endedAt,
		&durationSeconds,
		&scheduledEndAt,
		&justification,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Trigger = TriggerKind(trigger)
	if sess.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if sess.EndedAt, err = parseNullTime(endedAt); err != nil {
		return nil, fmt.Errorf("parsing ended_at: %w", err)
	}
	if sess.ScheduledEndAt, err = parseNullTime(scheduledEndAt); err != nil {
		return nil, fmt.Errorf("parsing scheduled_end_at: %w", err)
	}
	if durationSeconds.Valid {
		d := int(durationSeconds.Int64)
		sess.DurationSeconds = &d
	}
	if justification.Valid {
		sess.Justification = &justification.String
	}

	return &sess, nil
}

// parseNullTime converts a nullable RFC3339 column into a *time.Time.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
