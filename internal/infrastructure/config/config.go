package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the watering engine.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Zone     ZoneConfig     `yaml:"zone"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Weather  WeatherConfig  `yaml:"weather"`
	Advisory AdvisoryConfig `yaml:"advisory"`
	Watering WateringConfig `yaml:"watering"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ZoneConfig describes the watering zone this instance controls.
// One zone maps to one valve device and one soil sensor device.
type ZoneConfig struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	PlantType   string  `yaml:"plant_type"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	ValveDevice string  `yaml:"valve_device"`
	SoilSensor  string  `yaml:"soil_sensor"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// TriggerSecret authenticates the external scheduler that invokes the
	// trigger endpoints. When empty, trigger auth is disabled; this is only
	// acceptable for local development.
	TriggerSecret string `yaml:"trigger_secret"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// GatewayConfig contains the signed device-gateway connection settings.
type GatewayConfig struct {
	// BaseURL is the cloud gateway endpoint (e.g. https://openapi.tuyaeu.com).
	BaseURL string `yaml:"base_url"`

	// ClientID and Secret are the shared credentials used for request signing.
	ClientID string `yaml:"client_id"`
	Secret   string `yaml:"secret"`

	// TimeoutSeconds bounds every gateway HTTP call.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MoistureCode, TemperatureCode and SwitchCode are the device datapoint
	// codes for the soil moisture percentage, soil temperature and the valve
	// switch.
	MoistureCode    string `yaml:"moisture_code"`
	TemperatureCode string `yaml:"temperature_code"`
	SwitchCode      string `yaml:"switch_code"`
}

// WeatherConfig contains the weather provider settings.
type WeatherConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ForecastDays   int    `yaml:"forecast_days"`
}

// AdvisoryConfig contains the external reasoning-service settings.
type AdvisoryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// Breaker settings: after MaxFailures consecutive failures the breaker
	// opens for OpenSeconds and the deterministic strategy is used directly.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig contains circuit breaker settings for external services.
type BreakerConfig struct {
	MaxFailures int `yaml:"max_failures"`
	OpenSeconds int `yaml:"open_seconds"`
}

// WateringConfig contains the watering decision policy and safety bounds.
type WateringConfig struct {
	// MoistureLow is the threshold (%) below which watering is considered.
	MoistureLow float64 `yaml:"moisture_low"`

	// MoistureVeryDry is the threshold (%) below which the extended default
	// duration applies.
	MoistureVeryDry float64 `yaml:"moisture_very_dry"`

	// DefaultMinutes / ExtendedMinutes are the deterministic strategy durations.
	DefaultMinutes  int `yaml:"default_minutes"`
	ExtendedMinutes int `yaml:"extended_minutes"`

	// MinMinutes / MaxMinutes are the hard safety bounds applied to every
	// decision, whichever strategy produced it.
	MinMinutes int `yaml:"min_minutes"`
	MaxMinutes int `yaml:"max_minutes"`

	// RainSkipProbability (%) and RainSkipSumMM: when the next-day forecast
	// meets both, the deterministic strategy skips watering.
	RainSkipProbability float64 `yaml:"rain_skip_probability"`
	RainSkipSumMM       float64 `yaml:"rain_skip_sum_mm"`

	// WindowStartHour / WindowEndHour bound automated starts to a local-time
	// interval [start, end). Stops are never gated.
	WindowStartHour int    `yaml:"window_start_hour"`
	WindowEndHour   int    `yaml:"window_end_hour"`
	Timezone        string `yaml:"timezone"`

	// StaleAfterHours is the age beyond which an open session is presumed
	// abandoned and reconciled. StaleEstimatedMinutes is the duration written
	// when reconciling, since the true stop time is unknown.
	StaleAfterHours       int `yaml:"stale_after_hours"`
	StaleEstimatedMinutes int `yaml:"stale_estimated_minutes"`

	// HistoryLookbackDays bounds the session history given to the decision
	// strategies.
	HistoryLookbackDays int `yaml:"history_lookback_days"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MQTTConfig contains MQTT broker connection settings for event publishing.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WATERD_SECTION_KEY
// For example: WATERD_DATABASE_PATH, WATERD_GATEWAY_SECRET
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Zone: ZoneConfig{
			ID:   "zone-001",
			Name: "Garden",
		},
		Database: DatabaseConfig{
			Path:        "./data/waterd.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Gateway: GatewayConfig{
			TimeoutSeconds:  10,
			MoistureCode:    "humidity",
			TemperatureCode: "temp_current",
			SwitchCode:      "switch",
		},
		Weather: WeatherConfig{
			Enabled:        true,
			BaseURL:        "https://api.open-meteo.com",
			TimeoutSeconds: 10,
			ForecastDays:   3,
		},
		Advisory: AdvisoryConfig{
			Enabled:        false,
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
			Breaker: BreakerConfig{
				MaxFailures: 3,
				OpenSeconds: 300,
			},
		},
		Watering: WateringConfig{
			MoistureLow:           35,
			MoistureVeryDry:       20,
			DefaultMinutes:        30,
			ExtendedMinutes:       45,
			MinMinutes:            30,
			MaxMinutes:            60,
			RainSkipProbability:   70,
			RainSkipSumMM:         5,
			WindowStartHour:       6,
			WindowEndHour:         22,
			Timezone:              "UTC",
			StaleAfterHours:       4,
			StaleEstimatedMinutes: 30,
			HistoryLookbackDays:   7,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "waterd",
			},
			QoS: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WATERD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("WATERD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("WATERD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("WATERD_API_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = p
		}
	}
	if v := os.Getenv("WATERD_TRIGGER_SECRET"); v != "" {
		cfg.API.TriggerSecret = v
	}

	// Gateway credentials (IMPORTANT: prefer env over file in production)
	if v := os.Getenv("WATERD_GATEWAY_CLIENT_ID"); v != "" {
		cfg.Gateway.ClientID = v
	}
	if v := os.Getenv("WATERD_GATEWAY_SECRET"); v != "" {
		cfg.Gateway.Secret = v
	}

	// Advisory
	if v := os.Getenv("WATERD_ADVISORY_API_KEY"); v != "" {
		cfg.Advisory.APIKey = v
	}

	// InfluxDB
	if v := os.Getenv("WATERD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// MQTT
	if v := os.Getenv("WATERD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WATERD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WATERD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors and unsafe values.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Zone validation
	if c.Zone.ID == "" {
		errs = append(errs, "zone.id is required")
	}
	if c.Zone.ValveDevice == "" {
		errs = append(errs, "zone.valve_device is required")
	}
	if c.Zone.SoilSensor == "" {
		errs = append(errs, "zone.soil_sensor is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Gateway validation - signing cannot work without credentials
	if c.Gateway.BaseURL == "" {
		errs = append(errs, "gateway.base_url is required")
	}
	if c.Gateway.ClientID == "" {
		errs = append(errs, "gateway.client_id is required (set WATERD_GATEWAY_CLIENT_ID environment variable)")
	}
	if c.Gateway.Secret == "" {
		errs = append(errs, "gateway.secret is required (set WATERD_GATEWAY_SECRET environment variable)")
	}

	// Watering policy validation - the safety clamp must be coherent
	if c.Watering.MinMinutes < 1 {
		errs = append(errs, "watering.min_minutes must be at least 1")
	}
	if c.Watering.MaxMinutes < c.Watering.MinMinutes {
		errs = append(errs, "watering.max_minutes must be >= watering.min_minutes")
	}
	if c.Watering.MoistureLow <= 0 || c.Watering.MoistureLow > 100 {
		errs = append(errs, "watering.moisture_low must be in (0, 100]")
	}
	if c.Watering.MoistureVeryDry >= c.Watering.MoistureLow {
		errs = append(errs, "watering.moisture_very_dry must be below watering.moisture_low")
	}
	if c.Watering.WindowStartHour < 0 || c.Watering.WindowStartHour > 23 {
		errs = append(errs, "watering.window_start_hour must be between 0 and 23")
	}
	if c.Watering.WindowEndHour < 0 || c.Watering.WindowEndHour > 24 {
		errs = append(errs, "watering.window_end_hour must be between 0 and 24")
	}
	// An end hour at or below the start hour is a window wrapping midnight
	// (e.g. 22-6). Only equal hours are rejected: that is a zero-width
	// window which would never water.
	if c.Watering.WindowEndHour == c.Watering.WindowStartHour {
		errs = append(errs, "watering.window_start_hour and window_end_hour must differ")
	}
	if c.Watering.StaleAfterHours < 1 {
		errs = append(errs, "watering.stale_after_hours must be at least 1")
	}
	if _, err := time.LoadLocation(c.Watering.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("watering.timezone %q is not a valid IANA timezone", c.Watering.Timezone))
	}

	// Advisory validation - only when enabled
	if c.Advisory.Enabled {
		if c.Advisory.BaseURL == "" {
			errs = append(errs, "advisory.base_url is required when advisory is enabled")
		}
		if c.Advisory.APIKey == "" {
			errs = append(errs, "advisory.api_key is required when advisory is enabled (set WATERD_ADVISORY_API_KEY environment variable)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the configured watering timezone.
// Validate guarantees the name parses; on a zero Config it falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Watering.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GatewayTimeout returns the device gateway call timeout as a Duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
