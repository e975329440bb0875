package decision

import (
	"context"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// Engine selects a strategy and clamps its output.
//
// The advisory strategy is optional; when absent or failing, the
// deterministic strategy answers. The fallback is the concrete
// DeterministicStrategy rather than the Strategy interface because its
// Evaluate cannot fail, which is what lets Decide always return a decision.
type Engine struct {
	advisory      Strategy
	deterministic *DeterministicStrategy
	cfg           config.WateringConfig
	logger        *logging.Logger
}

// NewEngine creates a decision engine.
//
// Parameters:
//   - advisory: Optional advisory strategy; nil disables it
//   - deterministic: Fallback strategy, must not be nil
//   - cfg: Safety bounds for the clamp
//   - logger: Structured logger
func NewEngine(advisory Strategy, deterministic *DeterministicStrategy, cfg config.WateringConfig, logger *logging.Logger) *Engine {
	return &Engine{
		advisory:      advisory,
		deterministic: deterministic,
		cfg:           cfg,
		logger:        logger.With("component", "decision"),
	}
}

// Decide produces the clamped decision for one evaluation cycle.
func (e *Engine) Decide(ctx context.Context, in Inputs) *Decision {
	var dec *Decision

	if e.advisory != nil {
		advDec, err := e.advisory.Decide(ctx, in)
		if err != nil {
			e.logger.Warn("advisory strategy failed, falling back to deterministic",
				"error", err)
		} else {
			dec = advDec
		}
	}

	if dec == nil {
		dec = e.deterministic.Evaluate(in)
	}

	e.clamp(dec)

	e.logger.Info("watering decision",
		"strategy", dec.Strategy,
		"should_water", dec.ShouldWater,
		"duration_minutes", dec.DurationMinutes,
		"confidence", dec.Confidence,
		"justification", dec.Justification)

	return dec
}

// clamp enforces the safety bounds on every decision, whichever strategy
// produced it. Skips carry duration 0; watering durations land inside
// [MinMinutes, MaxMinutes].
func (e *Engine) clamp(dec *Decision) {
	if !dec.ShouldWater {
		dec.DurationMinutes = 0
		return
	}
	if dec.DurationMinutes < e.cfg.MinMinutes {
		dec.DurationMinutes = e.cfg.MinMinutes
	}
	if dec.DurationMinutes > e.cfg.MaxMinutes {
		dec.DurationMinutes = e.cfg.MaxMinutes
	}
}
