package decision

import (
	"context"
	"testing"

	"github.com/seammedia/watering-app/internal/advisory"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// fakeRecommender returns a canned recommendation or error.
type fakeRecommender struct {
	rec *advisory.Recommendation
	err error
}

func (f *fakeRecommender) Recommend(_ context.Context, _ advisory.Input) (*advisory.Recommendation, error) {
	return f.rec, f.err
}

func newTestEngine(rec Recommender) *Engine {
	cfg := testWateringConfig()
	var adv Strategy
	if rec != nil {
		adv = NewAdvisoryStrategy(rec, cfg)
	}
	return NewEngine(adv, NewDeterministicStrategy(cfg), cfg, logging.Default())
}

func TestEngineUsesAdvisory(t *testing.T) {
	engine := newTestEngine(&fakeRecommender{
		rec: &advisory.Recommendation{
			ShouldWater:     true,
			DurationMinutes: 40,
			Justification:   "dry with a hot afternoon ahead",
			Confidence:      advisory.ConfidenceMedium,
		},
	})

	dec := engine.Decide(context.Background(), testInputs(25))
	if dec.Strategy != StrategyAdvisory {
		t.Errorf("Strategy = %q, want advisory", dec.Strategy)
	}
	if !dec.ShouldWater || dec.DurationMinutes != 40 {
		t.Errorf("decision = %+v, want water 40m", dec)
	}
}

func TestEngineFallsBackOnAdvisoryFailure(t *testing.T) {
	engine := newTestEngine(&fakeRecommender{err: advisory.ErrUnavailable})

	// Scenario: moisture 18%, advisory unavailable. The deterministic
	// strategy fires and the duration respects the minimum bound.
	dec := engine.Decide(context.Background(), testInputs(18))
	if dec.Strategy != StrategyDeterministic {
		t.Errorf("Strategy = %q, want deterministic fallback", dec.Strategy)
	}
	if !dec.ShouldWater {
		t.Error("ShouldWater = false, want true at 18% moisture")
	}
	if dec.DurationMinutes < 30 || dec.DurationMinutes > 60 {
		t.Errorf("DurationMinutes = %d, want within [30, 60]", dec.DurationMinutes)
	}
}

func TestEngineWithoutAdvisory(t *testing.T) {
	engine := newTestEngine(nil)

	dec := engine.Decide(context.Background(), testInputs(60))
	if dec.Strategy != StrategyDeterministic {
		t.Errorf("Strategy = %q, want deterministic", dec.Strategy)
	}
	if dec.ShouldWater {
		t.Error("ShouldWater = true, want skip at 60% moisture")
	}
}

func TestEngineClamp(t *testing.T) {
	tests := []struct {
		name     string
		rec      *advisory.Recommendation
		expected int
	}{
		{
			"raises below minimum",
			&advisory.Recommendation{ShouldWater: true, DurationMinutes: 5, Justification: "a touch dry", Confidence: advisory.ConfidenceLow},
			30,
		},
		{
			"caps above maximum",
			&advisory.Recommendation{ShouldWater: true, DurationMinutes: 240, Justification: "soak it", Confidence: advisory.ConfidenceHigh},
			60,
		},
		{
			"in range untouched",
			&advisory.Recommendation{ShouldWater: true, DurationMinutes: 45, Justification: "dry", Confidence: advisory.ConfidenceHigh},
			45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeRecommender{rec: tt.rec})
			dec := engine.Decide(context.Background(), testInputs(25))
			if dec.DurationMinutes != tt.expected {
				t.Errorf("DurationMinutes = %d, want %d", dec.DurationMinutes, tt.expected)
			}
		})
	}

	t.Run("skip forces zero duration", func(t *testing.T) {
		engine := newTestEngine(&fakeRecommender{
			rec: &advisory.Recommendation{
				ShouldWater:     false,
				DurationMinutes: 25,
				Justification:   "recent rain",
				Confidence:      advisory.ConfidenceHigh,
			},
		})
		dec := engine.Decide(context.Background(), testInputs(25))
		if dec.ShouldWater || dec.DurationMinutes != 0 {
			t.Errorf("decision = %+v, want skip with duration 0", dec)
		}
	})
}

func TestEngineFallsBackOnInvalidRecommendation(t *testing.T) {
	// The strategy layer surfaces semantic failures as errors too.
	engine := newTestEngine(&fakeRecommender{err: advisory.ErrInvalidRecommendation})

	dec := engine.Decide(context.Background(), testInputs(18))
	if dec.Strategy != StrategyDeterministic {
		t.Errorf("Strategy = %q, want deterministic fallback", dec.Strategy)
	}
}
