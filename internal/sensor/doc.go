// Package sensor persists soil moisture readings.
//
// Readings are immutable samples captured during evaluation cycles. The
// decision policy only needs the latest reading per zone plus its age; the
// full history feeds the time-series store and the advisory context.
package sensor
