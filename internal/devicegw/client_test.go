package devicegw

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

const (
	testClientID = "test-client-id"
	testSecret   = "test-secret"
	testToken    = "test-access-token"
)

// newTestClient wires a Client against an httptest gateway.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(config.GatewayConfig{
		BaseURL:        srv.URL,
		ClientID:       testClientID,
		Secret:         testSecret,
		TimeoutSeconds: 5,
	}, logging.Default())
	return client, srv
}

// gatewayHandler is a minimal fake gateway serving the token, status, info
// and command endpoints. It verifies the signature on every request.
func gatewayHandler(t *testing.T, tokenCalls *atomic.Int64) http.Handler {
	t.Helper()

	mux := chi.NewRouter()

	verify := func(r *http.Request, token string, body []byte) {
		t.Helper()
		if got := r.Header.Get("sign_method"); got != "HMAC-SHA256" {
			t.Errorf("sign_method = %q, want HMAC-SHA256", got)
		}
		if got := r.Header.Get("client_id"); got != testClientID {
			t.Errorf("client_id = %q, want %q", got, testClientID)
		}
		ts := r.Header.Get("t")
		if ts == "" {
			t.Error("missing t header")
		}
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		want := signRequest(testClientID, testSecret, token, ts, r.Method, path, body)
		if got := r.Header.Get("sign"); got != want {
			t.Errorf("sign = %q, want %q", got, want)
		}
	}

	mux.Get("/v1.0/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		verify(r, "", nil)
		if r.URL.Query().Get("grant_type") != "1" {
			t.Errorf("grant_type = %q, want 1", r.URL.Query().Get("grant_type"))
		}
		writeEnvelope(w, map[string]any{
			"access_token": testToken,
			"expire_time":  7200,
		})
	})

	mux.Get("/v1.0/iot-03/devices/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		verify(r, testToken, nil)
		if got := r.Header.Get("access_token"); got != testToken {
			t.Errorf("access_token = %q, want %q", got, testToken)
		}
		writeEnvelope(w, []map[string]any{
			{"code": "humidity", "value": 42.0},
			{"code": "temp_current", "value": 18.5},
		})
	})

	mux.Get("/v1.0/iot-03/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
		verify(r, testToken, nil)
		writeEnvelope(w, map[string]any{
			"id":     chi.URLParam(r, "id"),
			"name":   "Garden Valve",
			"online": true,
		})
	})

	mux.Post("/v1.0/iot-03/devices/{id}/commands", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("reading command body: %v", err)
		}
		verify(r, testToken, body)

		var payload struct {
			Commands []Command `json:"commands"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decoding command body: %v", err)
		}
		if len(payload.Commands) != 1 || payload.Commands[0].Code != "switch" {
			t.Errorf("commands = %+v, want single switch command", payload.Commands)
		}
		writeEnvelope(w, true)
	})

	return mux
}

func writeEnvelope(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // Test helper
		"success": true,
		"t":       time.Now().UnixMilli(),
		"result":  result,
	})
}

func TestReadStatus(t *testing.T) {
	var tokenCalls atomic.Int64
	client, _ := newTestClient(t, gatewayHandler(t, &tokenCalls))

	points, err := client.ReadStatus(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("ReadStatus() returned %d datapoints, want 2", len(points))
	}

	moisture, ok := points[0].Float()
	if !ok || moisture != 42.0 {
		t.Errorf("moisture = %v (ok=%v), want 42", moisture, ok)
	}
}

func TestReadInfo(t *testing.T) {
	var tokenCalls atomic.Int64
	client, _ := newTestClient(t, gatewayHandler(t, &tokenCalls))

	info, err := client.ReadInfo(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("ReadInfo() error = %v", err)
	}
	if info.ID != "dev-1" || !info.Online {
		t.Errorf("ReadInfo() = %+v, want id dev-1 online", info)
	}
}

func TestSendCommand(t *testing.T) {
	var tokenCalls atomic.Int64
	client, _ := newTestClient(t, gatewayHandler(t, &tokenCalls))

	if err := client.SendCommand(context.Background(), "dev-1", "switch", true); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
}

func TestTokenCaching(t *testing.T) {
	var tokenCalls atomic.Int64
	client, _ := newTestClient(t, gatewayHandler(t, &tokenCalls))

	for i := 0; i < 3; i++ {
		if _, err := client.ReadStatus(context.Background(), "dev-1"); err != nil {
			t.Fatalf("ReadStatus() error = %v", err)
		}
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1 (cached)", got)
	}

	// Advance past expiry margin; next call must refresh.
	client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := client.ReadStatus(context.Background(), "dev-1"); err != nil {
		t.Fatalf("ReadStatus() after expiry error = %v", err)
	}
	if got := tokenCalls.Load(); got != 2 {
		t.Errorf("token endpoint called %d times after expiry, want 2", got)
	}
}

func TestAPIError(t *testing.T) {
	mux := chi.NewRouter()
	mux.Get("/v1.0/token", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, map[string]any{"access_token": testToken, "expire_time": 7200})
	})
	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // Test helper
			"success": false,
			"code":    1010,
			"msg":     "token invalid",
		})
	})

	client, _ := newTestClient(t, mux)

	_, err := client.ReadStatus(context.Background(), "dev-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ReadStatus() error = %v, want *APIError", err)
	}
	if apiErr.Code != 1010 || apiErr.Msg != "token invalid" {
		t.Errorf("APIError = %+v, want code 1010 msg %q", apiErr, "token invalid")
	}
}

func TestTransportError(t *testing.T) {
	client := New(config.GatewayConfig{
		BaseURL:        "http://127.0.0.1:1",
		ClientID:       testClientID,
		Secret:         testSecret,
		TimeoutSeconds: 1,
	}, logging.Default())

	_, err := client.ReadStatus(context.Background(), "dev-1")
	if err == nil {
		t.Fatal("ReadStatus() expected error for unreachable gateway")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure reported as APIError: %v", err)
	}
}

func TestSignRequest(t *testing.T) {
	// Signature must be deterministic for fixed inputs, uppercase hex, and
	// sensitive to the token component.
	sig := signRequest("cid", "secret", "", "1700000000000", "GET", "/v1.0/token?grant_type=1", nil)
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
	for _, ch := range sig {
		if (ch < '0' || ch > '9') && (ch < 'A' || ch > 'F') {
			t.Fatalf("signature contains non-uppercase-hex char %q", ch)
		}
	}

	withToken := signRequest("cid", "secret", "tok", "1700000000000", "GET", "/v1.0/token?grant_type=1", nil)
	if withToken == sig {
		t.Error("signature did not change when token was included")
	}
}
