package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

// ResultRepository handles test result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// CompleteWithResult inserts the result and transitions its attempt to completed in one transaction.
// Returns ErrStaleState when the attempt was no longer in progress.
func (r *ResultRepository) CompleteWithResult(ctx context.Context, res *model.Result) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO test_results
			(attempt_id, score, correct_count, total_questions, answers,
			 time_taken_seconds, time_taken_formatted, auto_submitted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		res.AttemptID, res.Score, res.CorrectCount, res.TotalQuestions, res.Answers,
		res.TimeTakenSeconds, res.TimeTakenFormatted, res.AutoSubmitted,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		// A concurrent submission already holds the attempt's result row.
		if err = translate(err); errors.Is(err, ErrDuplicate) {
			return ErrStaleState
		}
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE test_attempts
		 SET status = $1, completed_at = $2, result_id = $3
		 WHERE id = $4 AND status = $5`,
		model.AttemptStatusCompleted, res.CreatedAt, res.ID, res.AttemptID, model.AttemptStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}

	return tx.Commit(ctx)
}

// SetRecordingURL fills the recording URL of a result once.
func (r *ResultRepository) SetRecordingURL(ctx context.Context, resultID uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE test_results SET recording_url = $1
		 WHERE id = $2 AND recording_url IS NULL`, url, resultID,
	)
	return err
}

// GetByAttempt retrieves the result of an attempt.
func (r *ResultRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, score, correct_count, total_questions, answers,
			time_taken_seconds, time_taken_formatted, recording_url, auto_submitted, created_at
		 FROM test_results WHERE attempt_id = $1`, attemptID,
	).Scan(&res.ID, &res.AttemptID, &res.Score, &res.CorrectCount, &res.TotalQuestions, &res.Answers,
		&res.TimeTakenSeconds, &res.TimeTakenFormatted, &res.RecordingURL, &res.AutoSubmitted, &res.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}
