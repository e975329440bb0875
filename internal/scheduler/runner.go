package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seammedia/watering-app/internal/decision"
	"github.com/seammedia/watering-app/internal/devicegw"
	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
	"github.com/seammedia/watering-app/internal/sensor"
	"github.com/seammedia/watering-app/internal/session"
	"github.com/seammedia/watering-app/internal/weather"
)

// DeviceGateway is the slice of the signed device client the runner needs.
type DeviceGateway interface {
	ReadStatus(ctx context.Context, deviceID string) ([]devicegw.DataPoint, error)
	ReadInfo(ctx context.Context, deviceID string) (*devicegw.DeviceInfo, error)
}

// WeatherProvider fetches conditions for the zone's coordinates.
type WeatherProvider interface {
	Fetch(ctx context.Context, latitude, longitude float64) (*weather.Conditions, error)
}

// Decider produces the clamped watering decision.
type Decider interface {
	Decide(ctx context.Context, in decision.Inputs) *decision.Decision
}

// Lifecycle is the slice of the session manager the runner needs.
type Lifecycle interface {
	Start(ctx context.Context, p session.StartParams) (*session.WateringSession, error)
	StopOverdue(ctx context.Context) ([]session.WateringSession, error)
	ReconcileStale(ctx context.Context) ([]session.WateringSession, error)
}

// Runner wires the entry points to their collaborators for one zone.
type Runner struct {
	zone     config.ZoneConfig
	watering config.WateringConfig
	gateway  config.GatewayConfig
	loc      *time.Location

	devices   DeviceGateway
	weather   WeatherProvider
	engine    Decider
	lifecycle Lifecycle
	sessions  session.Repository
	readings  sensor.Repository
	events    *Events

	logger *logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// RunnerDeps collects the runner's collaborators.
type RunnerDeps struct {
	Devices   DeviceGateway
	Weather   WeatherProvider
	Engine    Decider
	Lifecycle Lifecycle
	Sessions  session.Repository
	Readings  sensor.Repository
	Events    *Events
}

// NewRunner creates the entry-point runner for the configured zone.
func NewRunner(cfg *config.Config, deps RunnerDeps, logger *logging.Logger) *Runner {
	return &Runner{
		zone:      cfg.Zone,
		watering:  cfg.Watering,
		gateway:   cfg.Gateway,
		loc:       cfg.Location(),
		devices:   deps.Devices,
		weather:   deps.Weather,
		engine:    deps.Engine,
		lifecycle: deps.Lifecycle,
		sessions:  deps.Sessions,
		readings:  deps.Readings,
		events:    deps.Events,
		logger:    logger.With("component", "scheduler"),
		now:       time.Now,
	}
}

// EvaluateAndStart runs one evaluation cycle for the zone.
//
// Sequence: window gate, active-session check, sensor read (fails closed),
// reading persisted, weather fetched (best effort), decision, device online
// check, start. Guards report a skip, not a failure; only sensor read and
// persistence failures mark the run unsuccessful.
func (r *Runner) EvaluateAndStart(ctx context.Context) *RunResult {
	res := &RunResult{Success: true, Action: ActionNone, Zone: r.zone.ID}
	now := r.now()

	// 1. Time window gate. Outside the window nothing is read or written.
	if !IsWithinWindow(now, r.watering.WindowStartHour, r.watering.WindowEndHour, r.loc) {
		res.Action = ActionSkipped
		res.step(now, "outside watering window %02d:00-%02d:00 (%s), skipping",
			r.watering.WindowStartHour, r.watering.WindowEndHour, r.loc)
		return res
	}
	res.step(now, "within watering window %02d:00-%02d:00",
		r.watering.WindowStartHour, r.watering.WindowEndHour)

	// 2. Active-session check. A concurrent start racing past this point is
	// caught again by the store's unique constraint inside Start.
	if active, err := r.sessions.ActiveByZone(ctx, r.zone.ID); err == nil {
		res.Action = ActionSkipped
		res.step(r.now(), "session %s already active since %s, skipping",
			active.ID, active.StartedAt.Format(time.RFC3339))
		return res
	} else if !errors.Is(err, session.ErrNoActiveSession) {
		return r.fail(res, "checking active session: %v", err)
	}

	// 3. Sensor read. No reading means no decision; the engine fails
	// closed rather than guessing wet or dry.
	reading, err := r.captureReading(ctx)
	if err != nil {
		return r.fail(res, "sensor read failed: %v", err)
	}
	res.step(r.now(), "moisture %.1f%% read from sensor %s", reading.Moisture, r.zone.SoilSensor)

	if err := r.readings.Create(ctx, reading); err != nil {
		return r.fail(res, "persisting reading: %v", err)
	}
	r.events.Reading(reading)

	// 4. Weather is context, not a prerequisite.
	conditions, err := r.weather.Fetch(ctx, r.zone.Latitude, r.zone.Longitude)
	if err != nil {
		conditions = nil
		res.step(r.now(), "weather unavailable (%v), proceeding without it", err)
	} else {
		res.step(r.now(), "weather: %s", conditions.Summary())
	}

	// 5. History is context too; a lookup failure costs signal, not the run.
	since := r.now().AddDate(0, 0, -r.watering.HistoryLookbackDays)
	history, err := r.sessions.RecentByZone(ctx, r.zone.ID, since)
	if err != nil {
		history = nil
		res.step(r.now(), "history unavailable (%v), proceeding without it", err)
	}

	// 6. Decide. The engine always answers and the result is clamped.
	dec := r.engine.Decide(ctx, decision.Inputs{
		ZoneName:  r.zone.Name,
		PlantType: r.zone.PlantType,
		Reading:   reading,
		ReadingAt: r.now(),
		Weather:   conditions,
		History:   history,
	})
	res.step(r.now(), "decision (%s, %s confidence): shouldWater=%t duration=%dm: %s",
		dec.Strategy, dec.Confidence, dec.ShouldWater, dec.DurationMinutes, dec.Justification)
	r.events.Decision(r.zone.ID, dec)

	if !dec.ShouldWater {
		res.step(r.now(), "no watering needed")
		return res
	}

	// 7. Never command an offline device.
	info, err := r.devices.ReadInfo(ctx, r.zone.ValveDevice)
	if err != nil {
		res.Action = ActionSkipped
		res.step(r.now(), "valve device %s unreachable (%v), skipping", r.zone.ValveDevice, err)
		return res
	}
	if !info.Online {
		res.Action = ActionSkipped
		res.step(r.now(), "valve device %s reports offline, skipping", r.zone.ValveDevice)
		return res
	}

	// 8. Start. Losing the claim race to a concurrent invocation is a
	// successful no-op, not an error.
	sess, err := r.lifecycle.Start(ctx, session.StartParams{
		ZoneID:        r.zone.ID,
		DeviceID:      r.zone.ValveDevice,
		Trigger:       session.TriggerAutomated,
		Minutes:       dec.DurationMinutes,
		Justification: dec.Justification,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionActive) {
			res.Action = ActionSkipped
			res.step(r.now(), "another invocation started a session first, skipping")
			return res
		}
		return r.fail(res, "starting session: %v", err)
	}

	res.Action = ActionStarted
	res.step(r.now(), "session %s started for %dm, scheduled end %s",
		sess.ID, dec.DurationMinutes, sess.ScheduledEndAt.Format(time.RFC3339))
	r.events.SessionStarted(sess)

	return res
}

// CheckAndStop stops sessions past their scheduled end, then reconciles
// stale ones. It ignores the time window: a running session must always be
// stoppable.
func (r *Runner) CheckAndStop(ctx context.Context) *RunResult {
	res := &RunResult{Success: true, Action: ActionNone, Zone: r.zone.ID}

	stopped, err := r.lifecycle.StopOverdue(ctx)
	for i := range stopped {
		sess := &stopped[i]
		res.step(r.now(), "session %s stopped after %ds (scheduled end %s)",
			sess.ID, derefInt(sess.DurationSeconds), sess.ScheduledEndAt.Format(time.RFC3339))
		r.events.SessionStopped(sess, "stopped")
	}
	if err != nil {
		r.fail(res, "stopping overdue sessions: %v", err)
		// Fall through: reconciliation still runs so one bad valve cannot
		// wedge stale cleanup.
	}

	reconciled, recErr := r.lifecycle.ReconcileStale(ctx)
	for i := range reconciled {
		sess := &reconciled[i]
		res.step(r.now(), "stale session %s reconciled with estimated duration", sess.ID)
		r.events.SessionStopped(sess, "reconciled")
	}
	if recErr != nil {
		r.fail(res, "reconciling stale sessions: %v", recErr)
	}

	if len(stopped)+len(reconciled) > 0 {
		res.Action = ActionStopped
	} else if res.Success {
		res.step(r.now(), "no sessions due for stopping")
	}

	return res
}

// captureReading reads moisture (required) and soil temperature (optional)
// from the zone's sensor. One status call covers both datapoints; each
// ReadStatus is a full signed round-trip to the gateway.
func (r *Runner) captureReading(ctx context.Context) (*sensor.Reading, error) {
	points, err := r.devices.ReadStatus(ctx, r.zone.SoilSensor)
	if err != nil {
		return nil, err
	}

	reading := &sensor.Reading{
		ZoneID:     r.zone.ID,
		CapturedAt: r.now().UTC(),
	}

	var haveMoisture bool
	for _, dp := range points {
		switch dp.Code {
		case r.gateway.MoistureCode:
			if v, ok := dp.Float(); ok {
				reading.Moisture = v
				haveMoisture = true
			}
		case r.gateway.TemperatureCode:
			if v, ok := dp.Float(); ok {
				temp := v
				reading.SoilTempC = &temp
			}
		}
	}
	if !haveMoisture {
		return nil, fmt.Errorf("%w: device %s code %s",
			devicegw.ErrDatapointMissing, r.zone.SoilSensor, r.gateway.MoistureCode)
	}

	return reading, nil
}

// fail marks the result unsuccessful and logs the step.
func (r *Runner) fail(res *RunResult, format string, args ...any) *RunResult {
	res.Success = false
	res.step(r.now(), format, args...)
	if res.Error == "" {
		res.Error = res.Steps[len(res.Steps)-1].Message
	}
	r.logger.Error("entry point failure", "zone_id", r.zone.ID, "error", res.Error)
	return res
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
