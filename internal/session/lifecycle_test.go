package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// fakeValves records SendCommand calls and can be told to fail.
type fakeValves struct {
	mu    sync.Mutex
	calls []valveCall
	fail  error
}

type valveCall struct {
	deviceID string
	code     string
	value    any
}

func (f *fakeValves) SendCommand(_ context.Context, deviceID, code string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, valveCall{deviceID, code, value})
	return nil
}

func (f *fakeValves) lastCall(t *testing.T) valveCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no valve commands sent")
	}
	return f.calls[len(f.calls)-1]
}

func newTestManager(t *testing.T) (*Manager, *SQLiteRepository, *fakeValves) {
	t.Helper()
	repo := NewSQLiteRepository(setupTestDB(t))
	valves := &fakeValves{}
	mgr := NewManager(repo, valves, "switch", 4*time.Hour, 30*time.Minute, logging.Default())
	return mgr, repo, valves
}

func TestManagerStart(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()

	sess, err := mgr.Start(ctx, StartParams{
		ZoneID:        "zone-garden",
		DeviceID:      "valve-1",
		Trigger:       TriggerAutomated,
		Minutes:       30,
		Justification: "moisture 22% below threshold 35%",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	call := valves.lastCall(t)
	if call.deviceID != "valve-1" || call.code != "switch" || call.value != true {
		t.Errorf("valve command = %+v, want valve-1/switch/true", call)
	}

	got, err := repo.ActiveByZone(ctx, "zone-garden")
	if err != nil {
		t.Fatalf("ActiveByZone() error = %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("active session = %q, want %q", got.ID, sess.ID)
	}
	if got.ScheduledEndAt == nil {
		t.Fatal("ScheduledEndAt not set")
	}
	if d := got.ScheduledEndAt.Sub(got.StartedAt); d != 30*time.Minute {
		t.Errorf("scheduled run = %v, want 30m", d)
	}
}

func TestManagerStartValidation(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Start(ctx, StartParams{ZoneID: "z", DeviceID: "d", Trigger: "bogus", Minutes: 30})
	if !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("Start() error = %v, want ErrInvalidTrigger", err)
	}

	_, err = mgr.Start(ctx, StartParams{ZoneID: "z", DeviceID: "d", Trigger: TriggerAutomated, Minutes: 0})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("Start() error = %v, want ErrInvalidDuration", err)
	}

	// Manual sessions are open-ended; passing a duration is a caller mistake.
	_, err = mgr.Start(ctx, StartParams{ZoneID: "z", DeviceID: "d", Trigger: TriggerManual, Minutes: 20})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("Start() error = %v, want ErrInvalidDuration", err)
	}
}

func TestManagerStartManualOpenEnded(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return base }

	sess, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerManual,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sess.ScheduledEndAt != nil {
		t.Errorf("ScheduledEndAt = %v, want nil for a manual session", sess.ScheduledEndAt)
	}
	if call := valves.lastCall(t); call.value != true {
		t.Errorf("valve command value = %v, want true", call.value)
	}

	// The stop sweep has no deadline to act on, however much later it runs.
	mgr.now = func() time.Time { return base.Add(2 * time.Hour) }
	stopped, err := mgr.StopOverdue(ctx)
	if err != nil {
		t.Fatalf("StopOverdue() error = %v", err)
	}
	if len(stopped) != 0 {
		t.Errorf("StopOverdue() = %+v, want empty for an open-ended session", stopped)
	}
	if _, err := repo.ActiveByZone(ctx, "zone-garden"); err != nil {
		t.Errorf("manual session should still be active: %v", err)
	}
}

func TestManagerStartWhileActive(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	params := StartParams{ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerManual}

	if _, err := mgr.Start(ctx, params); err != nil {
		t.Fatalf("Start() first error = %v", err)
	}
	if _, err := mgr.Start(ctx, params); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Start() second error = %v, want ErrSessionActive", err)
	}
}

func TestManagerStartValveFailureReleasesClaim(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()
	valves.fail = errors.New("gateway unreachable")

	_, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerAutomated, Minutes: 30,
	})
	if err == nil {
		t.Fatal("Start() expected error when valve command fails")
	}

	// Claim must be released so a retry can succeed.
	if _, err := repo.ActiveByZone(ctx, "zone-garden"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ActiveByZone() after failed start = %v, want ErrNoActiveSession", err)
	}

	valves.fail = nil
	if _, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerAutomated, Minutes: 30,
	}); err != nil {
		t.Errorf("Start() retry error = %v", err)
	}
}

func TestManagerStop(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerManual,
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sess, err := mgr.Stop(ctx, "zone-garden")
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if sess.Active() {
		t.Error("stopped session still reports active")
	}

	call := valves.lastCall(t)
	if call.value != false {
		t.Errorf("last valve command value = %v, want false", call.value)
	}

	if _, err := repo.ActiveByZone(ctx, "zone-garden"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ActiveByZone() after stop = %v, want ErrNoActiveSession", err)
	}
}

func TestManagerStopIdle(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.Stop(context.Background(), "zone-garden")
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Stop() on idle zone error = %v, want ErrNoActiveSession", err)
	}
}

func TestManagerStopValveFailureKeepsSessionActive(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerManual,
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	valves.fail = errors.New("gateway unreachable")
	if _, err := mgr.Stop(ctx, "zone-garden"); err == nil {
		t.Fatal("Stop() expected error when valve command fails")
	}

	// Session must stay active so the next stop check retries the valve.
	if _, err := repo.ActiveByZone(ctx, "zone-garden"); err != nil {
		t.Errorf("ActiveByZone() after failed stop = %v, want active session", err)
	}
}

func TestManagerStopOverdue(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	mgr.now = func() time.Time { return base }
	if _, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerScheduled, Minutes: 30,
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-lawn", DeviceID: "valve-2", Trigger: TriggerScheduled, Minutes: 90,
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// 45 minutes later only zone-garden is past its scheduled end.
	mgr.now = func() time.Time { return base.Add(45 * time.Minute) }
	stopped, err := mgr.StopOverdue(ctx)
	if err != nil {
		t.Fatalf("StopOverdue() error = %v", err)
	}
	if len(stopped) != 1 || stopped[0].ZoneID != "zone-garden" {
		t.Fatalf("StopOverdue() = %+v, want zone-garden only", stopped)
	}

	call := valves.lastCall(t)
	if call.deviceID != "valve-1" || call.value != false {
		t.Errorf("valve command = %+v, want valve-1 off", call)
	}
	if _, err := repo.ActiveByZone(ctx, "zone-lawn"); err != nil {
		t.Errorf("zone-lawn should still be active: %v", err)
	}

	// Second run finds nothing; stop checks are idempotent.
	stopped, err = mgr.StopOverdue(ctx)
	if err != nil {
		t.Fatalf("StopOverdue() second error = %v", err)
	}
	if len(stopped) != 0 {
		t.Errorf("StopOverdue() second = %+v, want empty", stopped)
	}
}

func TestManagerReconcileStale(t *testing.T) {
	mgr, repo, valves := newTestManager(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	mgr.now = func() time.Time { return base }
	if _, err := mgr.Start(ctx, StartParams{
		ZoneID: "zone-garden", DeviceID: "valve-1", Trigger: TriggerAutomated, Minutes: 30,
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Six hours later the session is well past the 4h stale cutoff. The
	// true stop time is unknown, so no device command is sent and the row
	// closes with the estimated runtime.
	mgr.now = func() time.Time { return base.Add(6 * time.Hour) }
	valveCallsBefore := len(valves.calls)

	closed, err := mgr.ReconcileStale(ctx)
	if err != nil {
		t.Fatalf("ReconcileStale() error = %v", err)
	}
	if len(closed) != 1 || closed[0].ZoneID != "zone-garden" {
		t.Fatalf("ReconcileStale() = %+v, want zone-garden", closed)
	}
	if len(valves.calls) != valveCallsBefore {
		t.Error("ReconcileStale() sent a device command, want none")
	}

	// The returned copy carries the close fields so event publishing sees
	// them without a re-read.
	if closed[0].EndedAt == nil {
		t.Error("returned session missing EndedAt")
	}
	if closed[0].DurationSeconds == nil || *closed[0].DurationSeconds != 1800 {
		t.Errorf("returned DurationSeconds = %v, want 1800 (estimated)", closed[0].DurationSeconds)
	}

	if _, err := repo.ActiveByZone(ctx, "zone-garden"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ActiveByZone() after reconcile = %v, want ErrNoActiveSession", err)
	}

	// Estimated duration, not measured: 30 minutes.
	got, err := repo.GetByID(ctx, closed[0].ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 1800 {
		t.Errorf("DurationSeconds = %v, want 1800 (estimated)", got.DurationSeconds)
	}

	// A second sweep never re-closes an already-closed session.
	closed, err = mgr.ReconcileStale(ctx)
	if err != nil {
		t.Fatalf("ReconcileStale() second error = %v", err)
	}
	if len(closed) != 0 {
		t.Errorf("ReconcileStale() second = %+v, want empty", closed)
	}
}
