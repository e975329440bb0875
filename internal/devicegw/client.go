package devicegw

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// tokenExpiryMargin is subtracted from the reported token lifetime so a
// token is never used in the final moments before the gateway rejects it.
const tokenExpiryMargin = 60 * time.Second

// Client is a signed HTTP client for the cloud device gateway.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The token cache is guarded
//     by a mutex; concurrent callers share one cached token.
type Client struct {
	cfg    config.GatewayConfig
	http   *http.Client
	logger *logging.Logger

	// now is replaceable in tests.
	now func() time.Time

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a gateway client from configuration.
//
// Parameters:
//   - cfg: Gateway connection settings (base URL, credentials, timeout)
//   - logger: Structured logger for request diagnostics
//
// Returns:
//   - *Client: Ready-to-use client; the first authorised call fetches a token
func New(cfg config.GatewayConfig, logger *logging.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger: logger.With("component", "devicegw"),
		now:    time.Now,
	}
}

// ReadStatus fetches the current datapoints of a device.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Gateway device identifier
//
// Returns:
//   - []DataPoint: All datapoints reported by the device
//   - error: Transport error, *APIError, or token failure
func (c *Client) ReadStatus(ctx context.Context, deviceID string) ([]DataPoint, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1.0/iot-03/devices/"+deviceID+"/status", nil, true)
	if err != nil {
		return nil, err
	}

	var points []DataPoint
	if err := json.Unmarshal(resp.Result, &points); err != nil {
		return nil, fmt.Errorf("%w: decoding status result: %w", ErrRequestFailed, err)
	}
	return points, nil
}

// ReadInfo fetches device metadata, including the online flag.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Gateway device identifier
//
// Returns:
//   - *DeviceInfo: Device metadata
//   - error: Transport error, *APIError, or token failure
func (c *Client) ReadInfo(ctx context.Context, deviceID string) (*DeviceInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1.0/iot-03/devices/"+deviceID, nil, true)
	if err != nil {
		return nil, err
	}

	var info DeviceInfo
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		return nil, fmt.Errorf("%w: decoding device info: %w", ErrRequestFailed, err)
	}
	return &info, nil
}

// SendCommand sends a single control command to a device.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Gateway device identifier
//   - code: Datapoint code to set (e.g. the valve switch code)
//   - value: New value for the datapoint
//
// Returns:
//   - error: Transport error, *APIError, or token failure
func (c *Client) SendCommand(ctx context.Context, deviceID, code string, value any) error {
	body, err := json.Marshal(map[string]any{
		"commands": []Command{{Code: code, Value: value}},
	})
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrRequestFailed, err)
	}

	_, err = c.do(ctx, http.MethodPost, "/v1.0/iot-03/devices/"+deviceID+"/commands", body, true)
	if err != nil {
		return err
	}

	c.logger.Debug("device command sent", "device_id", deviceID, "code", code, "value", value)
	return nil
}

// ensureToken returns a valid access token, refreshing when the cached one
// is absent or inside the expiry margin.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.token, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/v1.0/token?grant_type=1", nil, false)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}

	var tok tokenResult
	if err := json.Unmarshal(resp.Result, &tok); err != nil {
		return "", fmt.Errorf("%w: decoding token result: %w", ErrTokenRefresh, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenRefresh)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpireTime) * time.Second)
	c.logger.Debug("gateway token refreshed", "expires_in_seconds", tok.ExpireTime)

	return c.token, nil
}

// do signs and executes one gateway request and decodes the envelope.
// Authorised requests (withToken) fetch or reuse the cached token first.
func (c *Client) do(ctx context.Context, method, path string, body []byte, withToken bool) (*apiResponse, error) {
	token := ""
	if withToken {
		t, err := c.ensureToken(ctx)
		if err != nil {
			return nil, err
		}
		token = t
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}

	t := strconv.FormatInt(c.now().UnixMilli(), 10)
	req.Header.Set("client_id", c.cfg.ClientID)
	req.Header.Set("t", t)
	req.Header.Set("sign_method", "HMAC-SHA256")
	req.Header.Set("sign", signRequest(c.cfg.ClientID, c.cfg.Secret, token, t, method, path, body))
	if withToken {
		req.Header.Set("access_token", token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // Response body close

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: status %d: decoding response: %w", ErrRequestFailed, httpResp.StatusCode, err)
	}

	if !resp.Success {
		return nil, &APIError{Code: resp.Code, Msg: resp.Msg}
	}

	return &resp, nil
}

// signRequest computes the request signature.
//
// The canonical string is METHOD, the hex SHA-256 of the body, an empty
// headers-to-sign line, and the path (including query), joined by newlines.
// The signed string prepends client_id, the access token (when present) and
// the millisecond timestamp. The result is uppercase hex HMAC-SHA256.
func signRequest(clientID, secret, token, t, method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	canonical := method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n" + "\n" + path

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(clientID + token + t + canonical))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
