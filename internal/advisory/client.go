package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// Client calls the reasoning service through a circuit breaker.
type Client struct {
	cfg     config.AdvisoryConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

// chat-completion request/response shapes.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// New creates an advisory client from configuration.
//
// The breaker opens after cfg.Breaker.MaxFailures consecutive failures and
// stays open for cfg.Breaker.OpenSeconds, during which Recommend fails
// fast with ErrUnavailable.
func New(cfg config.AdvisoryConfig, logger *logging.Logger) *Client {
	log := logger.With("component", "advisory")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "advisory",
		Timeout: time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.Breaker.MaxFailures)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			log.Warn("advisory breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		breaker: breaker,
		logger:  log,
	}
}

// Recommend asks the service for a watering recommendation.
//
// Failure modes:
//   - ErrUnavailable: transport failure, non-2xx status, or breaker open
//   - ErrNoJSON: response text holds no JSON object
//   - ErrInvalidRecommendation: JSON present but fields implausible
//
// All of them mean the same thing to the caller: fall back to the
// deterministic strategy.
func (c *Client) Recommend(ctx context.Context, in Input) (*Recommendation, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.request(ctx, buildPrompt(in))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}

	text := result.(string)
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding object: %w", ErrInvalidRecommendation, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	c.logger.Debug("advisory recommendation received",
		"should_water", rec.ShouldWater,
		"duration_minutes", rec.DurationMinutes,
		"confidence", rec.Confidence)

	return &rec, nil
}

// request performs one chat-completion call and returns the response text.
func (c *Client) request(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", fmt.Errorf("%w: decoding envelope: %w", ErrUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrUnavailable)
	}

	return chat.Choices[0].Message.Content, nil
}
