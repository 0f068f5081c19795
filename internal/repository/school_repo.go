package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tutoria-backend/internal/models"
)

type SchoolRepo struct {
	pool *pgxpool.Pool
}

func NewSchoolRepo(pool *pgxpool.Pool) *SchoolRepo {
	return &SchoolRepo{pool: pool}
}

func (r *SchoolRepo) Create(ctx context.Context, s *models.School) error {
	query := `INSERT INTO schools (name, city) VALUES ($1, $2) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, s.Name, s.City).Scan(&s.ID, &s.CreatedAt)
}

func (r *SchoolRepo) List(ctx context.Context) ([]models.School, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, city, created_at FROM schools ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schools []models.School
	for rows.Next() {
		var s models.School
		if err := rows.Scan(&s.ID, &s.Name, &s.City, &s.CreatedAt); err != nil {
			return nil, err
		}
		schools = append(schools, s)
	}
	return schools, rows.Err()
}

func (r *SchoolRepo) Update(ctx context.Context, s *models.School) error {
	_, err := r.pool.Exec(ctx, `UPDATE schools SET name = $2, city = $3 WHERE id = $1`, s.ID, s.Name, s.City)
	return err
}

func (r *SchoolRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM schools WHERE id = $1`, id)
	return err
}
