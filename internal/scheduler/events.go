package scheduler

import (
	"encoding/json"
	"time"

	"github.com/seammedia/watering-app/internal/decision"
	"github.com/seammedia/watering-app/internal/infrastructure/influxdb"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
	"github.com/seammedia/watering-app/internal/infrastructure/mqtt"
	"github.com/seammedia/watering-app/internal/sensor"
	"github.com/seammedia/watering-app/internal/session"
)

// Events fans run outcomes out to the optional observability sinks: MQTT
// events for dashboards and InfluxDB points for history.
//
// Both sinks are optional and best effort. A nil *Events, a nil client, or
// a publish failure never affects the run; failures are logged and dropped.
type Events struct {
	mqtt   *mqtt.Client
	influx *influxdb.Client
	logger *logging.Logger
}

// NewEvents creates the event fan-out. Either client may be nil.
func NewEvents(mqttClient *mqtt.Client, influxClient *influxdb.Client, logger *logging.Logger) *Events {
	return &Events{
		mqtt:   mqttClient,
		influx: influxClient,
		logger: logger.With("component", "events"),
	}
}

// Reading records a captured sensor reading.
func (e *Events) Reading(reading *sensor.Reading) {
	if e == nil || e.influx == nil {
		return
	}
	if reading.SoilTempC != nil {
		e.influx.WriteReading(reading.ZoneID, reading.Moisture, *reading.SoilTempC)
	} else {
		e.influx.WriteMoistureOnly(reading.ZoneID, reading.Moisture)
	}
}

// Decision publishes a decision event and telemetry point.
func (e *Events) Decision(zoneID string, dec *decision.Decision) {
	if e == nil {
		return
	}
	if e.influx != nil {
		e.influx.WriteDecision(zoneID, dec.Strategy, dec.ShouldWater, dec.DurationMinutes)
	}
	e.publish(mqtt.Topics{}.DecisionEvent(zoneID), map[string]any{
		"zone_id":          zoneID,
		"strategy":         dec.Strategy,
		"should_water":     dec.ShouldWater,
		"duration_minutes": dec.DurationMinutes,
		"confidence":       dec.Confidence,
		"justification":    dec.Justification,
		"at":               time.Now().UTC().Format(time.RFC3339),
	})
}

// SessionStarted publishes a session-start event.
func (e *Events) SessionStarted(sess *session.WateringSession) {
	if e == nil {
		return
	}
	payload := map[string]any{
		"zone_id":    sess.ZoneID,
		"session_id": sess.ID,
		"event":      "started",
		"trigger":    string(sess.Trigger),
		"started_at": sess.StartedAt.Format(time.RFC3339),
	}
	if sess.ScheduledEndAt != nil {
		payload["scheduled_end_at"] = sess.ScheduledEndAt.Format(time.RFC3339)
	}
	e.publish(mqtt.Topics{}.SessionEvent(sess.ZoneID), payload)
}

// SessionStopped publishes a session-end event (stopped or reconciled) and
// records the closed duration.
func (e *Events) SessionStopped(sess *session.WateringSession, event string) {
	if e == nil {
		return
	}
	if e.influx != nil && sess.DurationSeconds != nil {
		e.influx.WriteSessionClosed(sess.ZoneID, string(sess.Trigger), *sess.DurationSeconds)
	}
	payload := map[string]any{
		"zone_id":    sess.ZoneID,
		"session_id": sess.ID,
		"event":      event,
		"trigger":    string(sess.Trigger),
	}
	if sess.EndedAt != nil {
		payload["ended_at"] = sess.EndedAt.Format(time.RFC3339)
	}
	if sess.DurationSeconds != nil {
		payload["duration_seconds"] = *sess.DurationSeconds
	}
	e.publish(mqtt.Topics{}.SessionEvent(sess.ZoneID), payload)
}

// publish sends one JSON event, dropping it on any failure.
func (e *Events) publish(topic string, payload map[string]any) {
	if e.mqtt == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("encoding event payload", "topic", topic, "error", err)
		return
	}
	if err := e.mqtt.PublishJSON(topic, data); err != nil {
		e.logger.Warn("publishing event", "topic", topic, "error", err)
	}
}
