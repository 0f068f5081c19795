package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutoria-backend/internal/changefeed"
	"tutoria-backend/internal/models"
)

// ErrInvalidTransition means the session is not in a status that allows
// the requested lifecycle change (e.g. starting a cancelled session).
var ErrInvalidTransition = errors.New("session status does not allow this transition")

const sessionColumns = `id, subject_id, student_id, professor_id, scheduled_at,
	planned_minutes, session_type, status, started_at, ended_at, created_at`

type SessionRepo struct {
	pool *pgxpool.Pool
	feed *changefeed.Publisher
}

func NewSessionRepo(pool *pgxpool.Pool, feed *changefeed.Publisher) *SessionRepo {
	return &SessionRepo{pool: pool, feed: feed}
}

func scanSession(row pgx.Row, s *models.TutoringSession) error {
	return row.Scan(
		&s.ID, &s.SubjectID, &s.StudentID, &s.ProfessorID, &s.ScheduledAt,
		&s.PlannedMinutes, &s.Type, &s.Status, &s.StartedAt, &s.EndedAt, &s.CreatedAt,
	)
}

func (r *SessionRepo) Create(ctx context.Context, s *models.TutoringSession) error {
	query := `
		INSERT INTO tutoring_sessions
			(subject_id, student_id, professor_id, scheduled_at, planned_minutes, session_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns

	err := scanSession(r.pool.QueryRow(ctx, query,
		s.SubjectID, s.StudentID, s.ProfessorID, s.ScheduledAt, s.PlannedMinutes, s.Type,
	), s)
	if err != nil {
		return err
	}

	r.feed.Publish(ctx, changefeed.TableSessions, changefeed.OpInsert, s)
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TutoringSession, error) {
	var s models.TutoringSession
	err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM tutoring_sessions WHERE id = $1`, id), &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByParticipant returns the sessions a user takes part in as
// student or professor, optionally filtered by status.
func (r *SessionRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, status string) ([]models.TutoringSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM tutoring_sessions
		WHERE (student_id = $1 OR professor_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY scheduled_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.TutoringSession
	for rows.Next() {
		var s models.TutoringSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) ListInProgress(ctx context.Context) ([]models.TutoringSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM tutoring_sessions WHERE status = $1`, models.StatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.TutoringSession
	for rows.Next() {
		var s models.TutoringSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Start transitions a scheduled session to in_progress and stamps the
// start instant. The status guard makes the transition idempotent-safe
// against racing clients.
func (r *SessionRepo) Start(ctx context.Context, id uuid.UUID) (*models.TutoringSession, error) {
	query := `
		UPDATE tutoring_sessions
		SET status = $2, started_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + sessionColumns

	var s models.TutoringSession
	err := scanSession(r.pool.QueryRow(ctx, query, id, models.StatusInProgress, models.StatusScheduled), &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	r.feed.Publish(ctx, changefeed.TableSessions, changefeed.OpUpdate, &s)
	return &s, nil
}

// SetTerminal moves a session to completed or cancelled. Completed is
// only reachable from in_progress; cancelled also from scheduled.
func (r *SessionRepo) SetTerminal(ctx context.Context, id uuid.UUID, status string) (*models.TutoringSession, error) {
	allowed := []string{models.StatusInProgress}
	if status == models.StatusCancelled {
		allowed = append(allowed, models.StatusScheduled)
	}

	query := `
		UPDATE tutoring_sessions
		SET status = $2, ended_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING ` + sessionColumns

	var s models.TutoringSession
	err := scanSession(r.pool.QueryRow(ctx, query, id, status, allowed), &s)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	r.feed.Publish(ctx, changefeed.TableSessions, changefeed.OpUpdate, &s)
	return &s, nil
}

type SessionReminder struct {
	SessionID      uuid.UUID
	SubjectName    string
	ScheduledAt    time.Time
	PlannedMinutes int
	StudentEmail   string
	StudentName    string
	ProfessorEmail *string
	ProfessorName  *string
}

// ListDueReminders returns scheduled sessions starting within the lead
// window that have not been reminded yet.
func (r *SessionRepo) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]SessionReminder, error) {
	query := `
		SELECT ts.id, subj.name, ts.scheduled_at, ts.planned_minutes,
		       stu.email, stu.full_name, prof.email, prof.full_name
		FROM tutoring_sessions ts
		JOIN subjects subj ON subj.id = ts.subject_id
		JOIN users stu ON stu.id = ts.student_id
		LEFT JOIN users prof ON prof.id = ts.professor_id
		WHERE ts.status = $1
		  AND ts.reminder_sent_at IS NULL
		  AND ts.scheduled_at > $2
		  AND ts.scheduled_at <= $3
		ORDER BY ts.scheduled_at
	`
	rows, err := r.pool.Query(ctx, query, models.StatusScheduled, now, now.Add(lead))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []SessionReminder
	for rows.Next() {
		var rem SessionReminder
		if err := rows.Scan(
			&rem.SessionID, &rem.SubjectName, &rem.ScheduledAt, &rem.PlannedMinutes,
			&rem.StudentEmail, &rem.StudentName, &rem.ProfessorEmail, &rem.ProfessorName,
		); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *SessionRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tutoring_sessions SET reminder_sent_at = $2 WHERE id = $1`, id, at)
	return err
}
