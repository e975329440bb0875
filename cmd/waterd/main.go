// Watering Engine - Automated Irrigation Orchestrator
//
// This is the main entry point for the watering engine. The engine manages
// a single irrigation zone:
//   - Signed device gateway access (soil sensor reads, valve commands)
//   - Moisture and weather driven watering decisions
//   - Session lifecycle with stop and stale-session reconciliation
//
// The engine is stateless between runs; an external scheduler invokes the
// trigger endpoints and the engine decides what, if anything, to do.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/seammedia/watering-app/migrations"

	"github.com/seammedia/watering-app/internal/advisory"
	"github.com/seammedia/watering-app/internal/api"
	"github.com/seammedia/watering-app/internal/decision"
	"github.com/seammedia/watering-app/internal/devicegw"
	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/database"
	"github.com/seammedia/watering-app/internal/infrastructure/influxdb"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
	"github.com/seammedia/watering-app/internal/infrastructure/mqtt"
	"github.com/seammedia/watering-app/internal/scheduler"
	"github.com/seammedia/watering-app/internal/sensor"
	"github.com/seammedia/watering-app/internal/session"
	"github.com/seammedia/watering-app/internal/weather"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting watering engine",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	sessionRepo := session.NewSQLiteRepository(db.DB)
	sensorRepo := sensor.NewSQLiteRepository(db.DB)

	// Signed device gateway client (valve and soil sensor)
	gateway := devicegw.New(cfg.Gateway, log)
	log.Info("device gateway client initialised", "base_url", cfg.Gateway.BaseURL)

	// Weather provider (optional; Fetch reports ErrDisabled when off)
	weatherClient := weather.New(cfg.Weather, log)
	if cfg.Weather.Enabled {
		log.Info("weather provider enabled", "base_url", cfg.Weather.BaseURL)
	} else {
		log.Info("weather provider disabled")
	}

	// Decision engine: advisory strategy when enabled, deterministic fallback
	var advisoryStrategy decision.Strategy
	if cfg.Advisory.Enabled {
		advisoryClient := advisory.New(cfg.Advisory, log)
		advisoryStrategy = decision.NewAdvisoryStrategy(advisoryClient, cfg.Watering)
		log.Info("advisory strategy enabled", "model", cfg.Advisory.Model)
	} else {
		log.Info("advisory strategy disabled, deterministic only")
	}
	engine := decision.NewEngine(
		advisoryStrategy,
		decision.NewDeterministicStrategy(cfg.Watering),
		cfg.Watering,
		log,
	)

	// Session lifecycle manager
	manager := session.NewManager(
		sessionRepo,
		gateway,
		cfg.Gateway.SwitchCode,
		time.Duration(cfg.Watering.StaleAfterHours)*time.Hour,
		time.Duration(cfg.Watering.StaleEstimatedMinutes)*time.Minute,
		log,
	)

	// Connect to MQTT broker for event publishing (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB for telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Entry-point runner for the configured zone
	events := scheduler.NewEvents(mqttClient, influxClient, log)
	runner := scheduler.NewRunner(cfg, scheduler.RunnerDeps{
		Devices:   gateway,
		Weather:   weatherClient,
		Engine:    engine,
		Lifecycle: manager,
		Sessions:  sessionRepo,
		Readings:  sensorRepo,
		Events:    events,
	}, log)
	log.Info("runner initialised",
		"zone", cfg.Zone.ID,
		"window", fmt.Sprintf("%02d:00-%02d:00", cfg.Watering.WindowStartHour, cfg.Watering.WindowEndHour),
		"timezone", cfg.Watering.Timezone,
	)

	// HTTP API server (health, metrics, history, trigger endpoints)
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Zone:     cfg.Zone,
		Watering: cfg.Watering,
		Logger:   log,
		Runner:   runner,
		Sessions: sessionRepo,
		DB:       db.DB,
		MQTT:     mqttClient,
		Influx:   influxClient,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("watering engine stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WATERD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WATERD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First failing check, or nil when all pass
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
