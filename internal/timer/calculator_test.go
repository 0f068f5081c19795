package timer

import (
	"testing"
	"time"

	"tutoria-backend/internal/models"
)

var t0 = time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)

func runningRecord(elapsed int, anchor time.Time) models.TimerRecord {
	return models.TimerRecord{ElapsedTime: elapsed, IsPaused: false, LastPause: &anchor}
}

func TestElapsed(t *testing.T) {
	tests := []struct {
		name     string
		rec      models.TimerRecord
		now      time.Time
		expected int
	}{
		{"running from start", runningRecord(0, t0), t0.Add(45 * time.Second), 45},
		{"running truncates partial seconds", runningRecord(0, t0), t0.Add(45*time.Second + 900*time.Millisecond), 45},
		{"running adds to stored seconds", runningRecord(45, t0.Add(100 * time.Second)), t0.Add(130 * time.Second), 75},
		{"paused ignores now", models.TimerRecord{ElapsedTime: 45, IsPaused: true, LastPause: &t0}, t0.Add(100 * time.Second), 45},
		{"paused ignores distant now", models.TimerRecord{ElapsedTime: 45, IsPaused: true, LastPause: &t0}, t0.Add(24 * time.Hour), 45},
		{"future anchor clamps to zero delta", runningRecord(30, t0.Add(time.Hour)), t0, 30},
		{"nil anchor falls back to session start", models.TimerRecord{ElapsedTime: 0, IsPaused: false}, t0.Add(10 * time.Second), 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Elapsed(tc.rec, t0, tc.now)
			if got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestElapsedTicksLinearly(t *testing.T) {
	rec := runningRecord(12, t0)

	prev := Elapsed(rec, t0, t0)
	for step := 1; step <= 120; step++ {
		now := t0.Add(time.Duration(step) * time.Second)
		got := Elapsed(rec, t0, now)
		if got-prev != 1 {
			t.Fatalf("Tick at +%ds jumped from %d to %d", step, prev, got)
		}
		prev = got
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  int
		minutes  int
		expected float64
	}{
		{"zero elapsed", 0, 60, 0},
		{"half consumed", 1800, 60, 50},
		{"fully consumed", 3600, 60, 100},
		{"overrun not clamped", 4500, 60, 125},
		{"negative elapsed clamps to zero", -10, 60, 0},
		{"zero planned duration", 100, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Progress(tc.elapsed, tc.minutes)
			if got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestProgressMonotonicWhileRunning(t *testing.T) {
	rec := runningRecord(0, t0)

	prev := -1.0
	for step := 0; step <= 301; step++ {
		now := t0.Add(time.Duration(step) * time.Second)
		p := Progress(Elapsed(rec, t0, now), 5)
		if p < prev {
			t.Fatalf("Progress decreased at +%ds: %v -> %v", step, prev, p)
		}
		prev = p
	}

	// A 5-minute session is overrun at +301s and progress must say so.
	if prev <= 100 {
		t.Errorf("Expected overrun progress above 100, got %v", prev)
	}
}
