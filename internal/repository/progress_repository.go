package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

// ProgressRepository handles durable progress snapshots.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Upsert replaces the stored snapshot of an attempt.
func (r *ProgressRepository) Upsert(ctx context.Context, p *model.Progress) error {
	questions := p.Questions
	if questions == nil {
		questions = []model.ProgressQuestion{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO test_progress (attempt_id, current_question_index, time_left, questions, saved_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id) DO UPDATE
		 SET current_question_index = EXCLUDED.current_question_index,
		     time_left = EXCLUDED.time_left,
		     questions = EXCLUDED.questions,
		     saved_at = EXCLUDED.saved_at`,
		p.AttemptID, p.CurrentQuestionIndex, p.TimeLeft, questions, p.SavedAt,
	)
	return translate(err)
}

// Get retrieves the stored snapshot of an attempt.
func (r *ProgressRepository) Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	p := &model.Progress{}
	err := r.pool.QueryRow(ctx,
		`SELECT attempt_id, current_question_index, time_left, questions, saved_at
		 FROM test_progress WHERE attempt_id = $1`, attemptID,
	).Scan(&p.AttemptID, &p.CurrentQuestionIndex, &p.TimeLeft, &p.Questions, &p.SavedAt)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// Delete removes the stored snapshot of an attempt.
func (r *ProgressRepository) Delete(ctx context.Context, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM test_progress WHERE attempt_id = $1`, attemptID)
	return err
}
