package decision

import (
	"context"
	"time"

	"github.com/seammedia/watering-app/internal/sensor"
	"github.com/seammedia/watering-app/internal/session"
	"github.com/seammedia/watering-app/internal/weather"
)

// Confidence tags for a decision.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Strategy names recorded on decisions and telemetry.
const (
	StrategyDeterministic = "deterministic"
	StrategyAdvisory      = "advisory"
)

// Decision is the outcome of one evaluation cycle. It is ephemeral: folded
// into the session justification and event stream, never stored on its own.
type Decision struct {
	ShouldWater     bool   `json:"should_water"`
	DurationMinutes int    `json:"duration_minutes"`
	Justification   string `json:"justification"`
	Confidence      string `json:"confidence"`

	// Strategy names which strategy produced the decision.
	Strategy string `json:"strategy"`
}

// Inputs carries everything a strategy may consult.
type Inputs struct {
	ZoneName  string
	PlantType string

	// Reading is the just-captured soil sample. Always present; the engine
	// fails closed before deciding when no reading could be taken.
	Reading *sensor.Reading

	// ReadingAt is the evaluation timestamp used to derive reading age.
	ReadingAt time.Time

	// Weather is nil when the fetch failed; strategies must cope.
	Weather *weather.Conditions

	// History lists recent sessions for the zone, newest first.
	History []session.WateringSession
}

// Strategy is one way of producing a Decision. Implementations return an
// error only when they cannot answer at all; the engine then falls back.
type Strategy interface {
	// Name identifies the strategy in logs and telemetry.
	Name() string

	// Decide produces a raw decision. The engine clamps it afterwards.
	Decide(ctx context.Context, in Inputs) (*Decision, error)
}
