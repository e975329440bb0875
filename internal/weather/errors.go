package weather

import "errors"

// Domain errors for the weather client.
var (
	// ErrRequestFailed is returned when the provider call fails
	// (network error, non-2xx status, malformed body).
	ErrRequestFailed = errors.New("weather: request failed")

	// ErrDisabled is returned by Fetch when weather is switched off in
	// configuration. Callers treat it like any other fetch failure.
	ErrDisabled = errors.New("weather: disabled by configuration")
)
