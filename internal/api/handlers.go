package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// handleTriggerEvaluate runs the evaluate-and-start entry point.
//
// The runner never returns an error; its RunResult (including failures) is
// the response body, always with status 200 so the external trigger can
// log outcomes uniformly.
func (s *Server) handleTriggerEvaluate(w http.ResponseWriter, r *http.Request) {
	result := s.runner.EvaluateAndStart(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// handleTriggerStop runs the check-and-stop entry point.
func (s *Server) handleTriggerStop(w http.ResponseWriter, r *http.Request) {
	result := s.runner.CheckAndStop(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Zone    string `json:"zone"`
	Time    string `json:"time"`
}

// handleHealth returns basic liveness information.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Zone:    s.zone.ID,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListSessions returns the zone's recent watering history.
//
// The optional "days" query parameter bounds the lookback (default: the
// configured history lookback, max 90).
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	days := s.watering.HistoryLookbackDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			writeBadRequest(w, "days must be an integer between 1 and 90")
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	sessions, err := s.sessions.RecentByZone(r.Context(), s.zone.ID, since)
	if err != nil {
		s.logger.Error("listing sessions", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zone_id":  s.zone.ID,
		"since":    since.Format(time.RFC3339),
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	MQTT          ConnMetrics      `json:"mqtt"`
	InfluxDB      ConnMetrics      `json:"influxdb"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// ConnMetrics reports an optional collaborator's connection state.
type ConnMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime and collaborator metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = ConnMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = ConnMetrics{Enabled: true, Connected: s.influx.IsConnected()}
	}
	if s.db != nil {
		stats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
