// Package influxdb provides InfluxDB telemetry for the watering engine.
//
// It wraps the official influxdb-client-go v2 library with watering-engine-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Soil moisture and temperature readings per zone
//   - Watering decisions (strategy, duration, confidence)
//   - Completed session durations
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteReading("zone-garden", 34.5, 18.2)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly. Telemetry is
// best-effort: a disconnected client drops points rather than failing the
// watering pipeline.
package influxdb
