// Package weather fetches local conditions from an Open-Meteo style
// forecast API.
//
// The engine uses three slices of the response: current conditions, recent
// rainfall (hourly precipitation summed into 24h and 7d totals), and the
// daily forecast (precipitation sum and probability, temperature range).
// Weather is advisory context only; any failure here is reported to the
// caller, which proceeds without weather rather than blocking the
// evaluation cycle.
//
// The provider needs no credentials, so requests are plain GETs with query
// parameters.
package weather
