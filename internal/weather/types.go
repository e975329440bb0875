package weather

import "fmt"

// Conditions is the digested weather snapshot the decision policy consumes.
type Conditions struct {
	// Current conditions at the zone's coordinates.
	TemperatureC float64 `json:"temperature_c"`
	Humidity     float64 `json:"humidity"`
	WindSpeedKmh float64 `json:"wind_speed_kmh"`

	// Recent rainfall totals from the hourly history.
	Rain24hMM float64 `json:"rain_24h_mm"`
	Rain7dMM  float64 `json:"rain_7d_mm"`

	// Forecast holds one entry per day, today first.
	Forecast []DayForecast `json:"forecast"`
}

// DayForecast is one day of the daily forecast.
type DayForecast struct {
	Date              string  `json:"date"`
	TempMinC          float64 `json:"temp_min_c"`
	TempMaxC          float64 `json:"temp_max_c"`
	PrecipitationMM   float64 `json:"precipitation_mm"`
	PrecipitationProb float64 `json:"precipitation_probability"`
}

// Today returns the forecast for the current day, or nil when absent.
func (c *Conditions) Today() *DayForecast {
	if len(c.Forecast) == 0 {
		return nil
	}
	return &c.Forecast[0]
}

// Summary renders a compact one-paragraph description for advisory prompts.
func (c *Conditions) Summary() string {
	s := fmt.Sprintf("Current: %.1fC, %.0f%% humidity, wind %.1f km/h. Rain last 24h: %.1fmm, last 7d: %.1fmm.",
		c.TemperatureC, c.Humidity, c.WindSpeedKmh, c.Rain24hMM, c.Rain7dMM)
	if today := c.Today(); today != nil {
		s += fmt.Sprintf(" Today: %.1f-%.1fC, %.1fmm rain expected (%.0f%% probability).",
			today.TempMinC, today.TempMaxC, today.PrecipitationMM, today.PrecipitationProb)
	}
	return s
}

// apiResponse mirrors the relevant parts of the provider's JSON shape.
type apiResponse struct {
	Current struct {
		Temperature2m      float64 `json:"temperature_2m"`
		RelativeHumidity2m float64 `json:"relative_humidity_2m"`
		WindSpeed10m       float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Precipitation []float64 `json:"precipitation"`
	} `json:"hourly"`
	Daily struct {
		Time                     []string  `json:"time"`
		Temperature2mMin         []float64 `json:"temperature_2m_min"`
		Temperature2mMax         []float64 `json:"temperature_2m_max"`
		PrecipitationSum         []float64 `json:"precipitation_sum"`
		PrecipitationProbability []float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}
