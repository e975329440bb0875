package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the sessions table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE watering_sessions (
			id TEXT PRIMARY KEY,
			zone_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			trigger TEXT NOT NULL CHECK (trigger IN ('manual', 'scheduled', 'automated')),
			started_at TEXT NOT NULL,
			ended_at TEXT,
			duration_seconds INTEGER,
			scheduled_end_at TEXT,
			justification TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE UNIQUE INDEX idx_sessions_one_active_per_zone
			ON watering_sessions(zone_id) WHERE ended_at IS NULL;
		CREATE INDEX idx_sessions_zone_started ON watering_sessions(zone_id, started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})
	return db
}

// testSession builds a valid active session starting at the given time.
func testSession(id, zoneID string, startedAt time.Time) *WateringSession {
	end := startedAt.Add(30 * time.Minute)
	just := "moisture below threshold"
	return &WateringSession{
		ID:             id,
		ZoneID:         zoneID,
		DeviceID:       "valve-1",
		Trigger:        TriggerAutomated,
		StartedAt:      startedAt,
		ScheduledEndAt: &end,
		Justification:  &just,
		CreatedAt:      startedAt,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("s1", "zone-garden", start)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ZoneID != "zone-garden" || got.Trigger != TriggerAutomated {
		t.Errorf("GetByID() = %+v, want zone-garden/automated", got)
	}
	if !got.Active() {
		t.Error("new session should be active")
	}
	if got.ScheduledEndAt == nil || !got.ScheduledEndAt.Equal(start.Add(30*time.Minute)) {
		t.Errorf("ScheduledEndAt = %v, want %v", got.ScheduledEndAt, start.Add(30*time.Minute))
	}
	if got.Justification == nil || *got.Justification != "moisture below threshold" {
		t.Errorf("Justification = %v, want moisture below threshold", got.Justification)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetByID() error = %v, want ErrSessionNotFound", err)
	}
}

func TestOneActivePerZone(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("s1", "zone-garden", start)); err != nil {
		t.Fatalf("Create() first error = %v", err)
	}

	// Second active session for the same zone must lose the claim.
	err := repo.Create(ctx, testSession("s2", "zone-garden", start.Add(time.Minute)))
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("Create() second error = %v, want ErrSessionActive", err)
	}

	// A different zone is unaffected.
	if err := repo.Create(ctx, testSession("s3", "zone-lawn", start)); err != nil {
		t.Errorf("Create() other zone error = %v", err)
	}

	// Once closed, the zone accepts a new session.
	if err := repo.Close(ctx, "s1", start.Add(10*time.Minute)); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := repo.Create(ctx, testSession("s4", "zone-garden", start.Add(time.Hour))); err != nil {
		t.Errorf("Create() after close error = %v", err)
	}
}

func TestActiveByZone(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	_, err := repo.ActiveByZone(ctx, "zone-garden")
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("ActiveByZone() on idle zone error = %v, want ErrNoActiveSession", err)
	}

	if err := repo.Create(ctx, testSession("s1", "zone-garden", start)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.ActiveByZone(ctx, "zone-garden")
	if err != nil {
		t.Fatalf("ActiveByZone() error = %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("ActiveByZone() ID = %q, want s1", got.ID)
	}
}

func TestCloseRecordsDuration(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("s1", "zone-garden", start)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Close(ctx, "s1", start.Add(25*time.Minute)); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Active() {
		t.Error("closed session still reports active")
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 1500 {
		t.Errorf("DurationSeconds = %v, want 1500", got.DurationSeconds)
	}

	// Closing again is not silently accepted.
	if err := repo.Close(ctx, "s1", start.Add(30*time.Minute)); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Close() on closed session error = %v, want ErrSessionNotFound", err)
	}
}

func TestOverdueActive(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	// s1 scheduled to end 08:30, s2 (other zone) to end 09:30.
	if err := repo.Create(ctx, testSession("s1", "zone-garden", start)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s2 := testSession("s2", "zone-lawn", start)
	end2 := start.Add(90 * time.Minute)
	s2.ScheduledEndAt = &end2
	if err := repo.Create(ctx, s2); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	overdue, err := repo.OverdueActive(ctx, start.Add(45*time.Minute))
	if err != nil {
		t.Fatalf("OverdueActive() error = %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != "s1" {
		t.Errorf("OverdueActive() = %+v, want [s1]", overdue)
	}
}

func TestStaleActive(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("old", "zone-garden", start)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, testSession("fresh", "zone-lawn", start.Add(5*time.Hour))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stale, err := repo.StaleActive(ctx, start.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("StaleActive() error = %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Errorf("StaleActive() = %+v, want [old]", stale)
	}
}

func TestRecentByZone(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	// Three sessions a day apart, all closed so the unique index allows them.
	for i, id := range []string{"a", "b", "c"} {
		s := testSession(id, "zone-garden", base.AddDate(0, 0, i))
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
		if err := repo.Close(ctx, id, s.StartedAt.Add(20*time.Minute)); err != nil {
			t.Fatalf("Close(%s) error = %v", id, err)
		}
	}

	recent, err := repo.RecentByZone(ctx, "zone-garden", base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("RecentByZone() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentByZone() returned %d sessions, want 2", len(recent))
	}
	if recent[0].ID != "c" || recent[1].ID != "b" {
		t.Errorf("RecentByZone() order = [%s %s], want [c b]", recent[0].ID, recent[1].ID)
	}
}
