package advisory

import "errors"

// Domain errors for the advisory client.
var (
	// ErrUnavailable is returned when the service cannot be reached or the
	// circuit breaker is open.
	ErrUnavailable = errors.New("advisory: service unavailable")

	// ErrNoJSON is returned when the response text contains no balanced
	// JSON object.
	ErrNoJSON = errors.New("advisory: no JSON object in response")

	// ErrInvalidRecommendation is returned when the extracted JSON decodes
	// but fails field validation.
	ErrInvalidRecommendation = errors.New("advisory: invalid recommendation")
)
