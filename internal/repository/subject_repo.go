package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutoria-backend/internal/models"
)

type SubjectRepo struct {
	pool *pgxpool.Pool
}

func NewSubjectRepo(pool *pgxpool.Pool) *SubjectRepo {
	return &SubjectRepo{pool: pool}
}

func (r *SubjectRepo) Create(ctx context.Context, s *models.Subject) error {
	query := `INSERT INTO subjects (name) VALUES ($1) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, s.Name).Scan(&s.ID, &s.CreatedAt)
}

func (r *SubjectRepo) List(ctx context.Context) ([]models.Subject, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var s models.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepo) Update(ctx context.Context, s *models.Subject) error {
	_, err := r.pool.Exec(ctx, `UPDATE subjects SET name = $2 WHERE id = $1`, s.ID, s.Name)
	return err
}

func (r *SubjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return err
}
