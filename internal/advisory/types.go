package advisory

import (
	"fmt"
	"strings"
	"time"
)

// Confidence tags for a recommendation.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Recommendation is the JSON shape the reasoning service must embed in its
// response text.
type Recommendation struct {
	ShouldWater     bool   `json:"should_water"`
	DurationMinutes int    `json:"duration_minutes"`
	Justification   string `json:"justification"`
	Confidence      string `json:"confidence"`
}

// Validate checks field-level plausibility. Safety clamping of the
// duration is not done here; that belongs to the decision engine.
func (r *Recommendation) Validate() error {
	switch r.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return fmt.Errorf("%w: confidence %q", ErrInvalidRecommendation, r.Confidence)
	}
	if r.DurationMinutes < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidRecommendation, r.DurationMinutes)
	}
	if r.ShouldWater && r.DurationMinutes == 0 {
		return fmt.Errorf("%w: should_water with zero duration", ErrInvalidRecommendation)
	}
	if r.Justification == "" {
		return fmt.Errorf("%w: empty justification", ErrInvalidRecommendation)
	}
	return nil
}

// Input is the context embedded in the prompt.
type Input struct {
	ZoneName   string
	PlantType  string
	Moisture   float64
	SoilTempC  *float64
	ReadingAge time.Duration

	// WeatherSummary is empty when the weather fetch failed; the prompt
	// says so rather than omitting the section.
	WeatherSummary string

	// HistoryLines describe recent sessions, newest first.
	HistoryLines []string

	// MinMinutes and MaxMinutes tell the service the enforced bounds so
	// sensible responses need no clamping.
	MinMinutes int
	MaxMinutes int
}

// buildPrompt renders the request text for the reasoning service.
func buildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are an irrigation advisor. Decide whether to water the zone below right now.\n\n")
	fmt.Fprintf(&b, "Zone: %s (plants: %s)\n", in.ZoneName, in.PlantType)
	fmt.Fprintf(&b, "Soil moisture: %.1f%% (measured %.0f minutes ago)\n", in.Moisture, in.ReadingAge.Minutes())
	if in.SoilTempC != nil {
		fmt.Fprintf(&b, "Soil temperature: %.1fC\n", *in.SoilTempC)
	}

	b.WriteString("\nWeather: ")
	if in.WeatherSummary != "" {
		b.WriteString(in.WeatherSummary)
	} else {
		b.WriteString("unavailable")
	}
	b.WriteString("\n\nRecent watering history:\n")
	if len(in.HistoryLines) == 0 {
		b.WriteString("- none in the lookback window\n")
	}
	for _, line := range in.HistoryLines {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	fmt.Fprintf(&b, "\nIf watering, duration must be between %d and %d minutes.\n", in.MinMinutes, in.MaxMinutes)
	b.WriteString("Respond with a single JSON object: ")
	b.WriteString(`{"should_water": bool, "duration_minutes": int, "justification": string, "confidence": "high"|"medium"|"low"}`)
	b.WriteString("\n")

	return b.String()
}
