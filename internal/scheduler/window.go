package scheduler

import "time"

// IsWithinWindow reports whether the local hour falls inside the automated
// watering window [startHour, endHour).
//
// A window wrapping midnight (startHour > endHour) is honored: 22-6 means
// late evening and early morning. startHour == endHour means a zero-width
// window, always false.
func IsWithinWindow(now time.Time, startHour, endHour int, loc *time.Location) bool {
	h := now.In(loc).Hour()
	if startHour <= endHour {
		return h >= startHour && h < endHour
	}
	return h >= startHour || h < endHour
}
