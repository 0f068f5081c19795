package timer

import (
	"time"

	"tutoria-backend/internal/models"
)

// Elapsed returns the elapsed seconds for a timer record at the given
// instant. A paused record reports its stored value regardless of now.
// A running record adds the whole seconds since its last pause/resume
// anchor, truncating toward zero so partial seconds are never counted
// twice across a pause boundary. fallbackAnchor stands in when the
// record carries no anchor yet (a session that just started). An anchor
// in the future contributes zero rather than negative time.
func Elapsed(rec models.TimerRecord, fallbackAnchor, now time.Time) int {
	if rec.IsPaused {
		return rec.ElapsedTime
	}

	anchor := fallbackAnchor
	if rec.LastPause != nil {
		anchor = *rec.LastPause
	}

	delta := now.Sub(anchor)
	if delta < 0 {
		delta = 0
	}
	return rec.ElapsedTime + int(delta/time.Second)
}

// Progress returns the percentage of the planned duration consumed.
// Values above 100 are deliberate: overrun is an observable state the
// consumer flags, so only the lower bound is clamped.
func Progress(elapsedSeconds, plannedMinutes int) float64 {
	if plannedMinutes <= 0 {
		return 0
	}
	percent := float64(elapsedSeconds) / float64(plannedMinutes*60) * 100
	if percent < 0 {
		return 0
	}
	return percent
}
