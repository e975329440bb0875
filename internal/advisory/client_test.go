package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// newTestClient wires a Client against an httptest reasoning service.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.AdvisoryConfig{
		Enabled:        true,
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		Model:          "advisor-1",
		TimeoutSeconds: 5,
		Breaker:        config.BreakerConfig{MaxFailures: 3, OpenSeconds: 300},
	}, logging.Default())
}

// chatReply wraps text in a chat-completion envelope.
func chatReply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // Test helper
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": text}},
		},
	})
}

func testInput() Input {
	temp := 16.0
	return Input{
		ZoneName:       "Garden Bed",
		PlantType:      "tomatoes",
		Moisture:       22.5,
		SoilTempC:      &temp,
		ReadingAge:     5 * time.Minute,
		WeatherSummary: "Current: 18.0C, 60% humidity. Rain last 24h: 0.0mm.",
		HistoryLines:   []string{"2026-01-14 08:00 automated 30m"},
		MinMinutes:     30,
		MaxMinutes:     60,
	}
}

func TestRecommend(t *testing.T) {
	var gotPrompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "advisor-1" || len(req.Messages) != 1 {
			t.Errorf("request = %+v, want advisor-1 with one message", req)
		}
		gotPrompt = req.Messages[0].Content

		chatReply(w, `The soil is quite dry. {"should_water": true, "duration_minutes": 35, "justification": "moisture 22.5% is below the 35% threshold with no rain expected", "confidence": "high"} Water early in the day.`)
	})

	rec, err := client.Recommend(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !rec.ShouldWater || rec.DurationMinutes != 35 || rec.Confidence != ConfidenceHigh {
		t.Errorf("Recommend() = %+v, want water 35m high", rec)
	}

	// Prompt must carry the decision context and the enforced bounds.
	for _, want := range []string{"Garden Bed", "tomatoes", "22.5%", "between 30 and 60 minutes", "Rain last 24h"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestRecommendNoJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		chatReply(w, "I think you should water for a while, maybe half an hour.")
	})

	_, err := client.Recommend(context.Background(), testInput())
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("Recommend() error = %v, want ErrNoJSON", err)
	}
}

func TestRecommendInvalidFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		chatReply(w, `{"should_water": true, "duration_minutes": 30, "justification": "dry", "confidence": "certain"}`)
	})

	_, err := client.Recommend(context.Background(), testInput())
	if !errors.Is(err, ErrInvalidRecommendation) {
		t.Errorf("Recommend() error = %v, want ErrInvalidRecommendation", err)
	}
}

func TestRecommendServiceDown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Recommend(context.Background(), testInput())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Recommend() error = %v, want ErrUnavailable", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	// Three consecutive failures trip the breaker.
	for i := 0; i < 3; i++ {
		if _, err := client.Recommend(context.Background(), testInput()); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Recommend() error = %v, want ErrUnavailable", err)
		}
	}
	if requests != 3 {
		t.Fatalf("service saw %d requests, want 3", requests)
	}

	// Breaker is open: the next calls fail fast without hitting the service.
	for i := 0; i < 2; i++ {
		if _, err := client.Recommend(context.Background(), testInput()); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Recommend() with open breaker error = %v, want ErrUnavailable", err)
		}
	}
	if requests != 3 {
		t.Errorf("service saw %d requests after breaker opened, want 3", requests)
	}
}

func TestPromptWithoutWeatherOrHistory(t *testing.T) {
	in := testInput()
	in.WeatherSummary = ""
	in.HistoryLines = nil
	in.SoilTempC = nil

	prompt := buildPrompt(in)
	if !strings.Contains(prompt, "Weather: unavailable") {
		t.Errorf("prompt should state weather is unavailable:\n%s", prompt)
	}
	if !strings.Contains(prompt, "none in the lookback window") {
		t.Errorf("prompt should state empty history:\n%s", prompt)
	}
	if strings.Contains(prompt, "Soil temperature") {
		t.Errorf("prompt should omit soil temperature when absent:\n%s", prompt)
	}
}
