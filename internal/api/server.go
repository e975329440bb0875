package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/influxdb"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
	"github.com/seammedia/watering-app/internal/infrastructure/mqtt"
	"github.com/seammedia/watering-app/internal/scheduler"
	"github.com/seammedia/watering-app/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// TriggerRunner is the slice of the scheduler the trigger routes invoke.
type TriggerRunner interface {
	EvaluateAndStart(ctx context.Context) *scheduler.RunResult
	CheckAndStop(ctx context.Context) *scheduler.RunResult
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Zone     config.ZoneConfig
	Watering config.WateringConfig
	Logger   *logging.Logger
	Runner   TriggerRunner
	Sessions session.Repository
	DB       *sql.DB          // optional: database pool stats in /metrics
	MQTT     *mqtt.Client     // optional: connection status in /metrics
	Influx   *influxdb.Client // optional: connection status in /metrics
	Version  string
}

// Server is the HTTP API server for the watering engine.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	zone     config.ZoneConfig
	watering config.WateringConfig
	logger   *logging.Logger
	runner   TriggerRunner
	sessions session.Repository
	db       *sql.DB
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	version  string

	server    *http.Server
	startTime time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, runner, session repository)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("trigger runner is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session repository is required")
	}

	return &Server{
		cfg:       deps.Config,
		zone:      deps.Zone,
		watering:  deps.Watering,
		logger:    deps.Logger,
		runner:    deps.Runner,
		sessions:  deps.Sessions,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	if s.cfg.TriggerSecret == "" {
		s.logger.Warn("trigger secret not configured, trigger routes are UNAUTHENTICATED")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
