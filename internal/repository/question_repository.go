package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByPosition retrieves a position's full question bank.
func (r *QuestionRepository) ListByPosition(ctx context.Context, positionID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, position_id, question_text, image_url, options, correct_option, created_at
		 FROM questions WHERE position_id = $1
		 ORDER BY created_at`, positionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.PositionID, &q.QuestionText, &q.ImageURL, &q.Options, &q.CorrectOption, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListByIDs retrieves the given questions in the order of ids. Unknown ids are skipped.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.position_id, q.question_text, q.image_url, q.options, q.correct_option, q.created_at
		 FROM unnest($1::uuid[]) WITH ORDINALITY AS t(id, ord)
		 JOIN questions q ON q.id = t.id
		 ORDER BY t.ord`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]model.Question, 0, len(ids))
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.PositionID, &q.QuestionText, &q.ImageURL, &q.Options, &q.CorrectOption, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// DrawRandomIDs picks up to n random question ids from a position's bank.
func (r *QuestionRepository) DrawRandomIDs(ctx context.Context, positionID uuid.UUID, n int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE position_id = $1 ORDER BY random() LIMIT $2`,
		positionID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, n)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (position_id, question_text, image_url, options, correct_option)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		q.PositionID, q.QuestionText, q.ImageURL, q.Options, q.CorrectOption,
	).Scan(&q.ID, &q.CreatedAt)
}

// Delete removes a question from a position's bank.
func (r *QuestionRepository) Delete(ctx context.Context, positionID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM questions WHERE id = $1 AND position_id = $2`, id, positionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
