package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionSupervised = "supervised"
	SessionSelfStudy  = "self_study"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

type TutoringSession struct {
	ID             uuid.UUID  `json:"id"`
	SubjectID      uuid.UUID  `json:"subject_id"`
	StudentID      uuid.UUID  `json:"student_id"`
	ProfessorID    *uuid.UUID `json:"professor_id"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	PlannedMinutes int        `json:"planned_minutes"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsTerminal reports whether the session can no longer change.
func (s *TutoringSession) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

// TimerRecord is the persisted elapsed/pause state for one session.
// ElapsedTime holds whole seconds accumulated up to LastPause; while the
// timer is running the true elapsed time is ElapsedTime plus the seconds
// since LastPause. Version backs the compare-and-write in the repository.
type TimerRecord struct {
	ID          uuid.UUID  `json:"id"`
	SessionID   uuid.UUID  `json:"session_id"`
	ElapsedTime int        `json:"elapsed_time"`
	IsPaused    bool       `json:"is_paused"`
	LastPause   *time.Time `json:"last_pause"`
	Version     int        `json:"version"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
