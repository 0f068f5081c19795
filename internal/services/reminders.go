package services

import (
	"context"
	"log"
	"time"

	"tutoria-backend/internal/repository"
)

// ReminderScheduler emails participants ahead of their scheduled
// sessions. Sessions are marked as reminded so a restart never sends
// duplicates.
type ReminderScheduler struct {
	sessionRepo  *repository.SessionRepo
	email        *EmailService
	lead         time.Duration
	pollInterval time.Duration
	stopChan     chan struct{}
}

func NewReminderScheduler(sessionRepo *repository.SessionRepo, email *EmailService, lead, pollInterval time.Duration) *ReminderScheduler {
	return &ReminderScheduler{
		sessionRepo:  sessionRepo,
		email:        email,
		lead:         lead,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.sessionRepo == nil || s.email == nil {
		return
	}

	go s.loop()
	log.Printf("Reminder scheduler started (lead %s, poll %s)", s.lead, s.pollInterval)
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop() {
	// Run on startup as well as by interval.
	s.sendDueReminders(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sendDueReminders(context.Background(), time.Now().UTC())
		}
	}
}

func (s *ReminderScheduler) sendDueReminders(ctx context.Context, now time.Time) {
	due, err := s.sessionRepo.ListDueReminders(ctx, now, s.lead)
	if err != nil {
		log.Printf("reminders: failed to list due sessions: %v", err)
		return
	}

	for _, rem := range due {
		if err := s.email.SendSessionReminderEmail(rem.StudentEmail, rem.StudentName, rem.SubjectName, rem.ScheduledAt, rem.PlannedMinutes); err != nil {
			log.Printf("reminders: failed to email student for session %s: %v", rem.SessionID, err)
			continue
		}

		if rem.ProfessorEmail != nil {
			name := ""
			if rem.ProfessorName != nil {
				name = *rem.ProfessorName
			}
			if err := s.email.SendSessionReminderEmail(*rem.ProfessorEmail, name, rem.SubjectName, rem.ScheduledAt, rem.PlannedMinutes); err != nil {
				log.Printf("reminders: failed to email professor for session %s: %v", rem.SessionID, err)
			}
		}

		if err := s.sessionRepo.MarkReminderSent(ctx, rem.SessionID, now); err != nil {
			log.Printf("reminders: failed to mark session %s reminded: %v", rem.SessionID, err)
		}
	}
}
