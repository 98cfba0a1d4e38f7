package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

const candidateColumns = `id, name, email, phone, position_id, resume_url, video_url,
	access_code_hash, created_at, updated_at`

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

func scanCandidate(row interface{ Scan(...any) error }, c *model.Candidate) error {
	return row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.PositionID, &c.ResumeURL, &c.VideoURL,
		&c.AccessCodeHash, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a candidate by ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id,
	), c)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// GetByEmail retrieves a candidate by their unique email.
func (r *CandidateRepository) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE LOWER(email) = LOWER($1)`, email,
	), c)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// ListPaginated retrieves candidates with an optional position filter.
func (r *CandidateRepository) ListPaginated(ctx context.Context, positionID *uuid.UUID, limit, offset int) ([]model.Candidate, int, error) {
	where := ""
	args := []any{}
	if positionID != nil {
		args = append(args, *positionID)
		where = fmt.Sprintf(" WHERE position_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	candidates := []model.Candidate{}
	for rows.Next() {
		var c model.Candidate
		if err := scanCandidate(rows, &c); err != nil {
			return nil, 0, err
		}
		candidates = append(candidates, c)
	}
	return candidates, total, rows.Err()
}

// Create inserts a new candidate.
func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO candidates (name, email, phone, position_id, resume_url, video_url, access_code_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone, c.PositionID, c.ResumeURL, c.VideoURL, c.AccessCodeHash,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translate(err)
}

// Delete removes a candidate and, by cascade, their attempts.
func (r *CandidateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
