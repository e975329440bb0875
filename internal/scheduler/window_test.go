package scheduler

import (
	"testing"
	"time"
)

func TestIsWithinWindow(t *testing.T) {
	utc := time.UTC
	at := func(hour int) time.Time {
		return time.Date(2026, 1, 15, hour, 30, 0, 0, utc)
	}

	t.Run("day window boundaries", func(t *testing.T) {
		// [6, 22): inclusive start, exclusive end.
		for hour := 0; hour < 24; hour++ {
			expected := hour >= 6 && hour < 22
			if got := IsWithinWindow(at(hour), 6, 22, utc); got != expected {
				t.Errorf("IsWithinWindow(hour=%d, 6, 22) = %v, want %v", hour, got, expected)
			}
		}
	})

	t.Run("overnight window", func(t *testing.T) {
		// [22, 6): wraps midnight.
		for hour := 0; hour < 24; hour++ {
			expected := hour >= 22 || hour < 6
			if got := IsWithinWindow(at(hour), 22, 6, utc); got != expected {
				t.Errorf("IsWithinWindow(hour=%d, 22, 6) = %v, want %v", hour, got, expected)
			}
		}
	})

	t.Run("zero width window", func(t *testing.T) {
		if IsWithinWindow(at(8), 8, 8, utc) {
			t.Error("IsWithinWindow(8, 8, 8) = true, want false")
		}
	})

	t.Run("independent of date", func(t *testing.T) {
		for _, d := range []time.Time{
			time.Date(2026, 1, 1, 10, 0, 0, 0, utc),
			time.Date(2026, 6, 15, 10, 0, 0, 0, utc),
			time.Date(2030, 12, 31, 10, 0, 0, 0, utc),
		} {
			if !IsWithinWindow(d, 6, 22, utc) {
				t.Errorf("IsWithinWindow(%v, 6, 22) = false, want true", d)
			}
		}
	})

	t.Run("respects location", func(t *testing.T) {
		// 23:30 UTC is 01:30 in UTC+2, outside a 6-22 window either way,
		// but inside a 0-6 window only in the shifted zone.
		loc := time.FixedZone("UTC+2", 2*3600)
		now := time.Date(2026, 1, 15, 23, 30, 0, 0, utc)
		if IsWithinWindow(now, 0, 6, utc) {
			t.Error("23:30 UTC should be outside [0,6) UTC")
		}
		if !IsWithinWindow(now, 0, 6, loc) {
			t.Error("23:30 UTC should be inside [0,6) UTC+2")
		}
	})
}
