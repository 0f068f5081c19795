package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutoria-backend/internal/models"
)

type ClassRepo struct {
	pool *pgxpool.Pool
}

func NewClassRepo(pool *pgxpool.Pool) *ClassRepo {
	return &ClassRepo{pool: pool}
}

func (r *ClassRepo) Create(ctx context.Context, c *models.Class) error {
	query := `
		INSERT INTO classes (school_id, name, grade_level)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, c.SchoolID, c.Name, c.GradeLevel).Scan(&c.ID, &c.CreatedAt)
}

func (r *ClassRepo) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]models.Class, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, school_id, name, grade_level, created_at
		FROM classes WHERE school_id = $1
		ORDER BY grade_level, name
	`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []models.Class
	for rows.Next() {
		var c models.Class
		if err := rows.Scan(&c.ID, &c.SchoolID, &c.Name, &c.GradeLevel, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (r *ClassRepo) Update(ctx context.Context, c *models.Class) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE classes SET name = $2, grade_level = $3 WHERE id = $1
	`, c.ID, c.Name, c.GradeLevel)
	return err
}

func (r *ClassRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	return err
}
