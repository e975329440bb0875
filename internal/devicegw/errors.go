package devicegw

import (
	"errors"
	"fmt"
)

// Domain errors for the device gateway client.
var (
	// ErrRequestFailed is returned when the HTTP call itself fails
	// (network error, timeout, non-2xx status without an API envelope).
	ErrRequestFailed = errors.New("devicegw: request failed")

	// ErrTokenRefresh is returned when a token fetch/refresh is rejected.
	// This is fatal for the current invocation; no device action follows.
	ErrTokenRefresh = errors.New("devicegw: token refresh failed")

	// ErrDatapointMissing is returned when a device status response does not
	// contain the requested datapoint code.
	ErrDatapointMissing = errors.New("devicegw: datapoint missing from status")
)

// APIError is an application-level failure reported by the gateway
// (success=false in the response envelope). It is distinct from transport
// failures so callers can log the remote code and message.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("devicegw: api error %d: %s", e.Code, e.Msg)
}
