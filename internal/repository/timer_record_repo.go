package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutoria-backend/internal/changefeed"
	"tutoria-backend/internal/models"
	"tutoria-backend/internal/timer"
)

type TimerRecordRepo struct {
	pool *pgxpool.Pool
	feed *changefeed.Publisher
}

func NewTimerRecordRepo(pool *pgxpool.Pool, feed *changefeed.Publisher) *TimerRecordRepo {
	return &TimerRecordRepo{pool: pool, feed: feed}
}

// Create inserts the record for a session that just started: zero
// elapsed, running, anchored at the start instant.
func (r *TimerRecordRepo) Create(ctx context.Context, rec *models.TimerRecord) error {
	query := `
		INSERT INTO timer_records (session_id, elapsed_time, is_paused, last_pause)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		rec.SessionID, rec.ElapsedTime, rec.IsPaused, rec.LastPause,
	).Scan(&rec.ID, &rec.Version, &rec.UpdatedAt)
	if err != nil {
		return err
	}

	r.feed.Publish(ctx, changefeed.TableTimerRecords, changefeed.OpInsert, rec)
	return nil
}

func (r *TimerRecordRepo) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.TimerRecord, error) {
	query := `
		SELECT id, session_id, elapsed_time, is_paused, last_pause, version, updated_at
		FROM timer_records WHERE session_id = $1
	`
	var rec models.TimerRecord
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&rec.ID, &rec.SessionID, &rec.ElapsedTime, &rec.IsPaused,
		&rec.LastPause, &rec.Version, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update is a compare-and-write keyed by record id and version. When
// the row moved underneath us (another client toggled first) it returns
// timer.ErrStaleRecord and writes nothing.
func (r *TimerRecordRepo) Update(ctx context.Context, rec *models.TimerRecord) error {
	query := `
		UPDATE timer_records
		SET elapsed_time = $3, is_paused = $4, last_pause = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		rec.ID, rec.Version, rec.ElapsedTime, rec.IsPaused, rec.LastPause,
	).Scan(&rec.Version, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return timer.ErrStaleRecord
	}
	if err != nil {
		return err
	}

	r.feed.Publish(ctx, changefeed.TableTimerRecords, changefeed.OpUpdate, rec)
	return nil
}

// Archive moves a terminal session's record into the archive table and
// removes the live row. Safe to call twice; a missing live row is not
// an error.
func (r *TimerRecordRepo) Archive(ctx context.Context, sessionID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rec models.TimerRecord
	err = tx.QueryRow(ctx, `
		SELECT id, session_id, elapsed_time, is_paused, last_pause, version, updated_at
		FROM timer_records WHERE session_id = $1
	`, sessionID).Scan(
		&rec.ID, &rec.SessionID, &rec.ElapsedTime, &rec.IsPaused,
		&rec.LastPause, &rec.Version, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO timer_record_archive (id, session_id, elapsed_time, is_paused, last_pause, archived_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.SessionID, rec.ElapsedTime, rec.IsPaused, rec.LastPause); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM timer_records WHERE id = $1`, rec.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	r.feed.Publish(ctx, changefeed.TableTimerRecords, changefeed.OpDelete, &rec)
	return nil
}
