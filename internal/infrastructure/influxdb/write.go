package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading writes a soil sensor reading for a zone.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Pass soilTempC as NaN-free value; use WriteMoistureOnly when the sensor
// reports no temperature.
//
// Parameters:
//   - zoneID: Zone identifier (e.g., "zone-garden")
//   - moisture: Soil moisture percentage (0-100)
//   - soilTempC: Soil temperature in Celsius
func (c *Client) WriteReading(zoneID string, moisture float64, soilTempC float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"soil_readings",
		map[string]string{
			"zone_id": zoneID,
		},
		map[string]interface{}{
			"moisture":    moisture,
			"soil_temp_c": soilTempC,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMoistureOnly writes a reading for sensors without a temperature probe.
func (c *Client) WriteMoistureOnly(zoneID string, moisture float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"soil_readings",
		map[string]string{
			"zone_id": zoneID,
		},
		map[string]interface{}{
			"moisture": moisture,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDecision records the outcome of one evaluation cycle.
//
// Parameters:
//   - zoneID: Zone identifier
//   - strategy: Which strategy produced the decision ("advisory", "deterministic")
//   - shouldWater: Whether watering was started
//   - minutes: Clamped watering duration (0 when shouldWater is false)
func (c *Client) WriteDecision(zoneID string, strategy string, shouldWater bool, minutes int) {
	if !c.IsConnected() {
		return
	}

	watered := 0
	if shouldWater {
		watered = 1
	}

	point := write.NewPoint(
		"watering_decisions",
		map[string]string{
			"zone_id":  zoneID,
			"strategy": strategy,
		},
		map[string]interface{}{
			"should_water":     watered,
			"duration_minutes": minutes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionClosed records a completed watering session's measured duration.
//
// Parameters:
//   - zoneID: Zone identifier
//   - trigger: What started the session ("manual", "scheduled", "automated")
//   - durationSeconds: Measured (or reconciled estimate) duration
func (c *Client) WriteSessionClosed(zoneID string, trigger string, durationSeconds int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"watering_sessions",
		map[string]string{
			"zone_id": zoneID,
			"trigger": trigger,
		},
		map[string]interface{}{
			"duration_seconds": durationSeconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
