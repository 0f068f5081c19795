package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"tutoria-backend/internal/middleware"
)

type DashboardHandler struct {
	pool *pgxpool.Pool
}

func NewDashboardHandler(pool *pgxpool.Pool) *DashboardHandler {
	return &DashboardHandler{pool: pool}
}

type subjectStat struct {
	Subject        string `json:"subject"`
	Sessions       int    `json:"sessions"`
	TutoredMinutes int    `json:"tutored_minutes"`
}

// Stats aggregates the caller's completed sessions from the archived
// timer records: totals, per-subject breakdown and how many sessions
// ran over their planned duration.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var totalSessions, totalMinutes, overruns int
	err := h.pool.QueryRow(r.Context(), `
		SELECT COUNT(*),
		       COALESCE(SUM(tra.elapsed_time) / 60, 0),
		       COUNT(*) FILTER (WHERE tra.elapsed_time > ts.planned_minutes * 60)
		FROM tutoring_sessions ts
		JOIN timer_record_archive tra ON tra.session_id = ts.id
		WHERE ts.status = 'completed'
		  AND (ts.student_id = $1 OR ts.professor_id = $1)
	`, userID).Scan(&totalSessions, &totalMinutes, &overruns)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load stats", r))
		return
	}

	rows, err := h.pool.Query(r.Context(), `
		SELECT subj.name, COUNT(*), COALESCE(SUM(tra.elapsed_time) / 60, 0)
		FROM tutoring_sessions ts
		JOIN timer_record_archive tra ON tra.session_id = ts.id
		JOIN subjects subj ON subj.id = ts.subject_id
		WHERE ts.status = 'completed'
		  AND (ts.student_id = $1 OR ts.professor_id = $1)
		GROUP BY subj.name
		ORDER BY 3 DESC
	`, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load stats", r))
		return
	}
	defer rows.Close()

	var bySubject []subjectStat
	for rows.Next() {
		var s subjectStat
		if err := rows.Scan(&s.Subject, &s.Sessions, &s.TutoredMinutes); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load stats", r))
			return
		}
		bySubject = append(bySubject, s)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_sessions":  totalSessions,
		"tutored_minutes": totalMinutes,
		"overrun_count":   overruns,
		"by_subject":      bySubject,
	})
}
