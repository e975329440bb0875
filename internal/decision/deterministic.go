package decision

import (
	"context"
	"fmt"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
)

// DeterministicStrategy applies fixed moisture thresholds with a
// forecast-rain skip. It never fails: any input state maps to a decision.
type DeterministicStrategy struct {
	cfg config.WateringConfig
}

// NewDeterministicStrategy creates the threshold-based strategy.
func NewDeterministicStrategy(cfg config.WateringConfig) *DeterministicStrategy {
	return &DeterministicStrategy{cfg: cfg}
}

// Name identifies the strategy in logs and telemetry.
func (s *DeterministicStrategy) Name() string { return StrategyDeterministic }

// Decide applies the threshold rules:
//
//  1. Moisture at or above the low threshold: skip.
//  2. Heavy rain forecast for today (probability and sum both over the
//     configured caps): skip even when dry.
//  3. Below the very-dry threshold: water for the extended duration.
//  4. Otherwise (below low): water for the default duration.
func (s *DeterministicStrategy) Decide(_ context.Context, in Inputs) (*Decision, error) {
	return s.Evaluate(in), nil
}

// Evaluate is the infallible form of Decide: every input state maps to a
// decision, so there is no error to return. The engine relies on this as
// the last-resort fallback.
func (s *DeterministicStrategy) Evaluate(in Inputs) *Decision {
	moisture := in.Reading.Moisture

	if moisture >= s.cfg.MoistureLow {
		return &Decision{
			Justification: fmt.Sprintf("moisture %.1f%% at or above threshold %.1f%%", moisture, s.cfg.MoistureLow),
			Confidence:    ConfidenceHigh,
			Strategy:      StrategyDeterministic,
		}
	}

	if in.Weather != nil {
		if today := in.Weather.Today(); today != nil &&
			today.PrecipitationProb >= s.cfg.RainSkipProbability &&
			today.PrecipitationMM >= s.cfg.RainSkipSumMM {
			return &Decision{
				Justification: fmt.Sprintf("moisture %.1f%% is low but %.1fmm rain expected today (%.0f%% probability)",
					moisture, today.PrecipitationMM, today.PrecipitationProb),
				Confidence: ConfidenceMedium,
				Strategy:   StrategyDeterministic,
			}
		}
	}

	if moisture < s.cfg.MoistureVeryDry {
		return &Decision{
			ShouldWater:     true,
			DurationMinutes: s.cfg.ExtendedMinutes,
			Justification: fmt.Sprintf("moisture %.1f%% below very-dry threshold %.1f%%",
				moisture, s.cfg.MoistureVeryDry),
			Confidence: ConfidenceHigh,
			Strategy:   StrategyDeterministic,
		}
	}

	return &Decision{
		ShouldWater:     true,
		DurationMinutes: s.cfg.DefaultMinutes,
		Justification: fmt.Sprintf("moisture %.1f%% below threshold %.1f%%",
			moisture, s.cfg.MoistureLow),
		Confidence: ConfidenceHigh,
		Strategy:   StrategyDeterministic,
	}
}
