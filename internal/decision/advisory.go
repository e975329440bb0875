package decision

import (
	"context"
	"fmt"

	"github.com/seammedia/watering-app/internal/advisory"
	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/session"
)

// Recommender is the slice of the advisory client this strategy needs.
type Recommender interface {
	Recommend(ctx context.Context, in advisory.Input) (*advisory.Recommendation, error)
}

// AdvisoryStrategy delegates the decision to the external reasoning
// service. Any failure (transport, open breaker, unparseable or invalid
// response) surfaces as an error for the engine to fall back on.
type AdvisoryStrategy struct {
	client Recommender
	cfg    config.WateringConfig
}

// NewAdvisoryStrategy creates the reasoning-service strategy.
func NewAdvisoryStrategy(client Recommender, cfg config.WateringConfig) *AdvisoryStrategy {
	return &AdvisoryStrategy{client: client, cfg: cfg}
}

// Name identifies the strategy in logs and telemetry.
func (s *AdvisoryStrategy) Name() string { return StrategyAdvisory }

// Decide builds the prompt context and maps the recommendation.
func (s *AdvisoryStrategy) Decide(ctx context.Context, in Inputs) (*Decision, error) {
	rec, err := s.client.Recommend(ctx, advisory.Input{
		ZoneName:       in.ZoneName,
		PlantType:      in.PlantType,
		Moisture:       in.Reading.Moisture,
		SoilTempC:      in.Reading.SoilTempC,
		ReadingAge:     in.ReadingAt.Sub(in.Reading.CapturedAt),
		WeatherSummary: weatherSummary(in),
		HistoryLines:   historyLines(in.History),
		MinMinutes:     s.cfg.MinMinutes,
		MaxMinutes:     s.cfg.MaxMinutes,
	})
	if err != nil {
		return nil, err
	}

	return &Decision{
		ShouldWater:     rec.ShouldWater,
		DurationMinutes: rec.DurationMinutes,
		Justification:   rec.Justification,
		Confidence:      rec.Confidence,
		Strategy:        StrategyAdvisory,
	}, nil
}

// weatherSummary renders the weather section of the prompt, empty when the
// fetch failed.
func weatherSummary(in Inputs) string {
	if in.Weather == nil {
		return ""
	}
	return in.Weather.Summary()
}

// historyLines renders recent sessions as prompt lines, newest first.
func historyLines(history []session.WateringSession) []string {
	lines := make([]string, 0, len(history))
	for i := range history {
		sess := &history[i]
		line := fmt.Sprintf("%s %s", sess.StartedAt.Format("2006-01-02 15:04"), sess.Trigger)
		if sess.DurationSeconds != nil {
			line += fmt.Sprintf(" ran %dm", *sess.DurationSeconds/60)
		} else if sess.Active() {
			line += " still running"
		}
		lines = append(lines, line)
	}
	return lines
}
