package influxdb

import (
	"context"
	"testing"
	"time"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
)

// testConfig returns a config pointing at a local InfluxDB instance.
// Integration tests skip when the server is not reachable.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://localhost:8086",
		Token:         "waterd-dev-token",
		Org:           "waterd",
		Bucket:        "telemetry",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to InfluxDB or skips the test when unavailable.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()

	client, err := Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() {
		client.Close() //nolint:errcheck // Test cleanup
	})
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for disabled config, got nil")
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://invalid-host-that-does-not-exist:9999"

	_, err := Connect(cfg)
	if err == nil {
		t.Error("Connect() expected error for unreachable server, got nil")
	}
}

func TestWriteReading_Disconnected(t *testing.T) {
	// A disconnected client must drop points silently; telemetry is
	// best-effort and must never fail the watering pipeline.
	c := &Client{}

	c.WriteReading("zone-garden", 42.0, 17.5)
	c.WriteMoistureOnly("zone-garden", 42.0)
	c.WriteDecision("zone-garden", "deterministic", true, 30)
	c.WriteSessionClosed("zone-garden", "automated", 1800)
}

func TestConnect_Integration(t *testing.T) {
	client := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after successful Connect()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.WriteReading("zone-test", 55.0, 19.0)
	client.WriteDecision("zone-test", "advisory", false, 0)
}
