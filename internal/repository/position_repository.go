package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

const positionColumns = `id, name, salary, experience, vacancies, shift, job_type,
	question_count, duration_minutes, created_at, updated_at`

// PositionRepository handles position data access.
type PositionRepository struct {
	pool *pgxpool.Pool
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

func scanPosition(row interface{ Scan(...any) error }, p *model.Position) error {
	return row.Scan(&p.ID, &p.Name, &p.Salary, &p.Experience, &p.Vacancies, &p.Shift, &p.JobType,
		&p.QuestionCount, &p.DurationMinutes, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID retrieves a position by ID.
func (r *PositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Position, error) {
	p := &model.Position{}
	err := scanPosition(r.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE id = $1`, id,
	), p)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// List retrieves all positions, newest first.
func (r *PositionRepository) List(ctx context.Context) ([]model.Position, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+positionColumns+` FROM positions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []model.Position{}
	for rows.Next() {
		var p model.Position
		if err := scanPosition(rows, &p); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, p *model.Position) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO positions (name, salary, experience, vacancies, shift, job_type, question_count, duration_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Salary, p.Experience, p.Vacancies, p.Shift, p.JobType, p.QuestionCount, p.DurationMinutes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Update modifies an existing position.
func (r *PositionRepository) Update(ctx context.Context, p *model.Position) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE positions
		 SET name = $1, salary = $2, experience = $3, vacancies = $4, shift = $5, job_type = $6,
		     question_count = $7, duration_minutes = $8, updated_at = NOW()
		 WHERE id = $9
		 RETURNING created_at, updated_at`,
		p.Name, p.Salary, p.Experience, p.Vacancies, p.Shift, p.JobType, p.QuestionCount, p.DurationMinutes, p.ID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

// Delete removes a position. Fails while candidates still reference it.
func (r *PositionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
