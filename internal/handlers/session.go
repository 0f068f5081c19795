package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"tutoria-backend/internal/middleware"
	"tutoria-backend/internal/models"
	"tutoria-backend/internal/repository"
	"tutoria-backend/internal/timer"
	"tutoria-backend/internal/worker"
)

type SessionHandler struct {
	sessionRepo *repository.SessionRepo
	timerRepo   *repository.TimerRecordRepo
	timerSvc    *timer.Service
	queue       *redis.Client
}

func NewSessionHandler(sessionRepo *repository.SessionRepo, timerRepo *repository.TimerRecordRepo, timerSvc *timer.Service, queue *redis.Client) *SessionHandler {
	return &SessionHandler{
		sessionRepo: sessionRepo,
		timerRepo:   timerRepo,
		timerSvc:    timerSvc,
		queue:       queue,
	}
}

func (h *SessionHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		SubjectID      string     `json:"subject_id"`
		StudentID      string     `json:"student_id"`
		ProfessorID    string     `json:"professor_id"`
		ScheduledAt    *time.Time `json:"scheduled_at"`
		PlannedMinutes int        `json:"planned_minutes"`
		Type           string     `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := make(map[string]string)

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		fields["subject_id"] = "Invalid subject ID"
	}
	if req.PlannedMinutes <= 0 {
		fields["planned_minutes"] = "Planned duration must be positive"
	}
	if req.ScheduledAt == nil {
		fields["scheduled_at"] = "Scheduled start is required"
	}
	if req.Type != models.SessionSupervised && req.Type != models.SessionSelfStudy {
		fields["type"] = "Type must be supervised or self_study"
	}

	// Students schedule for themselves; professors name the student.
	studentID := userID
	if req.StudentID != "" {
		studentID, err = uuid.Parse(req.StudentID)
		if err != nil {
			fields["student_id"] = "Invalid student ID"
		}
	}

	var professorID *uuid.UUID
	if req.Type == models.SessionSupervised {
		id, err := uuid.Parse(req.ProfessorID)
		if err != nil {
			fields["professor_id"] = "Supervised sessions need a professor"
		} else {
			professorID = &id
		}
	}

	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	session := &models.TutoringSession{
		SubjectID:      subjectID,
		StudentID:      studentID,
		ProfessorID:    professorID,
		ScheduledAt:    *req.ScheduledAt,
		PlannedMinutes: req.PlannedMinutes,
		Type:           req.Type,
	}

	if err := h.sessionRepo.Create(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to schedule session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	status := r.URL.Query().Get("status")

	switch status {
	case "", models.StatusScheduled, models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown status filter", r))
		return
	}

	sessions, err := h.sessionRepo.ListByParticipant(r.Context(), userID, status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list sessions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadParticipantSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Start moves a scheduled session to in_progress, creates its timer
// record anchored at the start instant and registers it for ticking.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadParticipantSession(w, r)
	if !ok {
		return
	}

	started, err := h.sessionRepo.Start(r.Context(), session.ID)
	if errors.Is(err, repository.ErrInvalidTransition) {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is not in a startable state", r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start session", r))
		return
	}

	record := &models.TimerRecord{
		SessionID: started.ID,
		LastPause: started.StartedAt,
	}
	if err := h.timerRepo.Create(r.Context(), record); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create timer record", r))
		return
	}

	h.timerSvc.Register(*started, *record)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": started,
		"timer":   record,
	})
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, models.StatusCompleted)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, models.StatusCancelled)
}

func (h *SessionHandler) finish(w http.ResponseWriter, r *http.Request, status string) {
	session, ok := h.loadParticipantSession(w, r)
	if !ok {
		return
	}

	ended, err := h.sessionRepo.SetTerminal(r.Context(), session.ID, status)
	if errors.Is(err, repository.ErrInvalidTransition) {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Session is not in a state that can be "+status, r))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to end session", r))
		return
	}

	h.timerSvc.Deregister(ended.ID)

	if err := worker.Enqueue(r.Context(), h.queue, worker.ArchivalJob{SessionID: ended.ID}); err != nil {
		log.Printf("Failed to enqueue archival for session %s: %v", ended.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": ended})
}

// Timer returns the live (elapsed_seconds, is_paused, progress_percent)
// tuple for an in-progress session.
func (h *SessionHandler) Timer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadParticipantSession(w, r)
	if !ok {
		return
	}

	snap, ok := h.timerSvc.SnapshotFor(session.ID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session has no active timer", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"timer": snap})
}

// ToggleTimer pauses a running timer or resumes a paused one.
func (h *SessionHandler) ToggleTimer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadParticipantSession(w, r)
	if !ok {
		return
	}

	snap, err := h.timerSvc.TogglePause(r.Context(), session.ID)
	switch {
	case errors.Is(err, timer.ErrNotRegistered):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session has no active timer", r))
		return
	case errors.Is(err, timer.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Timer was changed by another participant", r))
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to toggle timer", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"timer": snap})
}

// loadParticipantSession resolves the {id} URL param and checks that
// the caller takes part in the session (or is an admin). On failure it
// writes the error response and returns ok=false.
func (h *SessionHandler) loadParticipantSession(w http.ResponseWriter, r *http.Request) (*models.TutoringSession, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	session, err := h.sessionRepo.GetByID(r.Context(), sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return nil, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load session", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	if middleware.GetUserRole(r.Context()) != models.RoleAdmin &&
		session.StudentID != userID &&
		(session.ProfessorID == nil || *session.ProfessorID != userID) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You are not a participant of this session", r))
		return nil, false
	}

	return session, true
}
