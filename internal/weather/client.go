package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seammedia/watering-app/internal/infrastructure/config"
	"github.com/seammedia/watering-app/internal/infrastructure/logging"
)

// Client fetches conditions from an Open-Meteo style provider.
type Client struct {
	cfg    config.WeatherConfig
	http   *http.Client
	logger *logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a weather client from configuration.
func New(cfg config.WeatherConfig, logger *logging.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger: logger.With("component", "weather"),
		now:    time.Now,
	}
}

// Fetch retrieves and digests conditions for the given coordinates.
//
// One request covers current conditions, seven days of hourly
// precipitation history, and the daily forecast.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - latitude, longitude: Zone coordinates
//
// Returns:
//   - *Conditions: Digested snapshot
//   - error: Wrapped ErrRequestFailed on any transport or decode failure
func (c *Client) Fetch(ctx context.Context, latitude, longitude float64) (*Conditions, error) {
	if !c.cfg.Enabled {
		return nil, ErrDisabled
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	q.Set("hourly", "precipitation")
	q.Set("daily", "temperature_2m_min,temperature_2m_max,precipitation_sum,precipitation_probability_max")
	q.Set("past_days", "7")
	q.Set("forecast_days", strconv.Itoa(c.cfg.ForecastDays))
	q.Set("timezone", "UTC")

	reqURL := c.cfg.BaseURL + "/v1/forecast?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	var api apiResponse
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err)
	}

	conditions := c.digest(&api)
	c.logger.Debug("weather fetched",
		"temperature_c", conditions.TemperatureC,
		"rain_24h_mm", conditions.Rain24hMM,
		"forecast_days", len(conditions.Forecast))

	return conditions, nil
}

// digest folds the raw provider arrays into the snapshot shape.
func (c *Client) digest(api *apiResponse) *Conditions {
	cond := &Conditions{
		TemperatureC: api.Current.Temperature2m,
		Humidity:     api.Current.RelativeHumidity2m,
		WindSpeedKmh: api.Current.WindSpeed10m,
	}

	// Hourly history includes past days and future hours; sum only hours
	// at or before now, within the 24h and 7d lookbacks.
	now := c.now().UTC()
	for i, ts := range api.Hourly.Time {
		if i >= len(api.Hourly.Precipitation) {
			break
		}
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		if t.After(now) {
			continue
		}
		age := now.Sub(t)
		if age <= 7*24*time.Hour {
			cond.Rain7dMM += api.Hourly.Precipitation[i]
		}
		if age <= 24*time.Hour {
			cond.Rain24hMM += api.Hourly.Precipitation[i]
		}
	}

	// Daily arrays cover past days too; keep only today onward.
	today := now.Format("2006-01-02")
	for i, date := range api.Daily.Time {
		if date < today {
			continue
		}
		day := DayForecast{Date: date}
		if i < len(api.Daily.Temperature2mMin) {
			day.TempMinC = api.Daily.Temperature2mMin[i]
		}
		if i < len(api.Daily.Temperature2mMax) {
			day.TempMaxC = api.Daily.Temperature2mMax[i]
		}
		if i < len(api.Daily.PrecipitationSum) {
			day.PrecipitationMM = api.Daily.PrecipitationSum[i]
		}
		if i < len(api.Daily.PrecipitationProbability) {
			day.PrecipitationProb = api.Daily.PrecipitationProbability[i]
		}
		cond.Forecast = append(cond.Forecast, day)
	}

	return cond
}
