package sensor

import "errors"

// Domain errors for sensor persistence.
var (
	// ErrNoReadings is returned when a zone has no stored readings.
	ErrNoReadings = errors.New("sensor: no readings for zone")

	// ErrInvalidMoisture is returned for moisture values outside 0-100.
	ErrInvalidMoisture = errors.New("sensor: moisture out of range")
)
