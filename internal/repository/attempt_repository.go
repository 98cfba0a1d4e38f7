package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

const attemptColumns = `a.id, a.candidate_id, a.position_id, a.attempt_number, a.status, a.is_latest,
	a.question_ids, a.started_at, a.expires_at, a.completed_at, a.result_id`

const resultColumns = `r.id, r.score, r.correct_count, r.total_questions, r.answers,
	r.time_taken_seconds, r.time_taken_formatted, r.recording_url, r.auto_submitted, r.created_at`

// PairTx is the view of a (candidate, position) pair inside a serialised transaction.
type PairTx interface {
	HasActive(ctx context.Context) (bool, error)
	MaxAttemptNumber(ctx context.Context) (int, error)
	ClearLatest(ctx context.Context) error
	Insert(ctx context.Context, a *model.Attempt) error
}

// AttemptRepository handles test attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// InPairTx runs fn in a transaction holding the pair's advisory lock.
// Concurrent callers for the same pair are serialised until commit.
func (r *AttemptRepository) InPairTx(ctx context.Context, candidateID, positionID uuid.UUID, fn func(PairTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockPair(ctx, tx, candidateID, positionID); err != nil {
		return err
	}

	if err := fn(&pairTx{tx: tx, candidateID: candidateID, positionID: positionID}); err != nil {
		return err
	}
	return translate(tx.Commit(ctx))
}

func lockPair(ctx context.Context, tx pgx.Tx, candidateID, positionID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		candidateID.String()+":"+positionID.String(),
	)
	return err
}

type pairTx struct {
	tx          pgx.Tx
	candidateID uuid.UUID
	positionID  uuid.UUID
}

func (p *pairTx) HasActive(ctx context.Context) (bool, error) {
	var exists bool
	err := p.tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM test_attempts
			WHERE candidate_id = $1 AND position_id = $2 AND status = $3
		)`, p.candidateID, p.positionID, model.AttemptStatusInProgress,
	).Scan(&exists)
	return exists, err
}

func (p *pairTx) MaxAttemptNumber(ctx context.Context) (int, error) {
	var n int
	err := p.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_number), 0) FROM test_attempts
		 WHERE candidate_id = $1 AND position_id = $2`, p.candidateID, p.positionID,
	).Scan(&n)
	return n, err
}

func (p *pairTx) ClearLatest(ctx context.Context) error {
	_, err := p.tx.Exec(ctx,
		`UPDATE test_attempts SET is_latest = FALSE
		 WHERE candidate_id = $1 AND position_id = $2 AND is_latest`, p.candidateID, p.positionID,
	)
	return err
}

func (p *pairTx) Insert(ctx context.Context, a *model.Attempt) error {
	err := p.tx.QueryRow(ctx,
		`INSERT INTO test_attempts
			(candidate_id, position_id, attempt_number, status, is_latest, question_ids, started_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		p.candidateID, p.positionID, a.AttemptNumber, a.Status, a.IsLatest, a.QuestionIDs, a.StartedAt, a.ExpiresAt,
	).Scan(&a.ID)
	if err != nil {
		return translate(err)
	}
	a.CandidateID = p.candidateID
	a.PositionID = p.positionID
	return nil
}

func scanAttempt(row pgx.Row, a *model.Attempt, extra ...any) error {
	dest := []any{
		&a.ID, &a.CandidateID, &a.PositionID, &a.AttemptNumber, &a.Status, &a.IsLatest,
		&a.QuestionIDs, &a.StartedAt, &a.ExpiresAt, &a.CompletedAt, &a.ResultID,
	}
	return row.Scan(append(dest, extra...)...)
}

// nullableResult receives the LEFT JOINed result columns.
type nullableResult struct {
	ID                 *uuid.UUID
	Score              *int
	CorrectCount       *int
	TotalQuestions     *int
	Answers            []model.AnswerBreakdown
	TimeTakenSeconds   *int
	TimeTakenFormatted *string
	RecordingURL       *string
	AutoSubmitted      *bool
	CreatedAt          *time.Time
}

func (n *nullableResult) dest() []any {
	return []any{
		&n.ID, &n.Score, &n.CorrectCount, &n.TotalQuestions, &n.Answers,
		&n.TimeTakenSeconds, &n.TimeTakenFormatted, &n.RecordingURL, &n.AutoSubmitted, &n.CreatedAt,
	}
}

func (n *nullableResult) toResult(attemptID uuid.UUID) *model.Result {
	if n.ID == nil {
		return nil
	}
	res := &model.Result{
		ID:           *n.ID,
		AttemptID:    attemptID,
		Answers:      n.Answers,
		RecordingURL: n.RecordingURL,
	}
	if n.Score != nil {
		res.Score = *n.Score
	}
	if n.CorrectCount != nil {
		res.CorrectCount = *n.CorrectCount
	}
	if n.TotalQuestions != nil {
		res.TotalQuestions = *n.TotalQuestions
	}
	if n.TimeTakenSeconds != nil {
		res.TimeTakenSeconds = *n.TimeTakenSeconds
	}
	if n.TimeTakenFormatted != nil {
		res.TimeTakenFormatted = *n.TimeTakenFormatted
	}
	if n.AutoSubmitted != nil {
		res.AutoSubmitted = *n.AutoSubmitted
	}
	if n.CreatedAt != nil {
		res.CreatedAt = *n.CreatedAt
	}
	return res
}

// GetByID retrieves an attempt without its result.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts a WHERE a.id = $1`, id,
	), a)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// GetWithResult retrieves an attempt and, when completed, its result.
func (r *AttemptRepository) GetWithResult(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	var res nullableResult
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`, `+resultColumns+`
		 FROM test_attempts a
		 LEFT JOIN test_results r ON r.attempt_id = a.id
		 WHERE a.id = $1`, id,
	), a, res.dest()...)
	if err != nil {
		return nil, translate(err)
	}
	a.Result = res.toResult(a.ID)
	return a, nil
}

// GetLatest retrieves the latest attempt for a candidate and position.
func (r *AttemptRepository) GetLatest(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	var res nullableResult
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`, `+resultColumns+`
		 FROM test_attempts a
		 LEFT JOIN test_results r ON r.attempt_id = a.id
		 WHERE a.candidate_id = $1 AND a.position_id = $2 AND a.is_latest`,
		candidateID, positionID,
	), a, res.dest()...)
	if err != nil {
		return nil, translate(err)
	}
	a.Result = res.toResult(a.ID)
	return a, nil
}

// ListByPair retrieves every attempt of a candidate for a position, oldest first.
func (r *AttemptRepository) ListByPair(ctx context.Context, candidateID, positionID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`, `+resultColumns+`
		 FROM test_attempts a
		 LEFT JOIN test_results r ON r.attempt_id = a.id
		 WHERE a.candidate_id = $1 AND a.position_id = $2
		 ORDER BY a.attempt_number ASC`, candidateID, positionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []model.Attempt{}
	for rows.Next() {
		var a model.Attempt
		var res nullableResult
		if err := scanAttempt(rows, &a, res.dest()...); err != nil {
			return nil, err
		}
		a.Result = res.toResult(a.ID)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Abandon moves an in-progress attempt to abandoned.
// Returns ErrStaleState when the attempt is not in progress.
func (r *AttemptRepository) Abandon(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_attempts SET status = $1
		 WHERE id = $2 AND status = $3`,
		model.AttemptStatusAbandoned, id, model.AttemptStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// Delete removes an attempt and hands the latest flag to the highest remaining attempt of the pair.
// Progress, result and proctor events are removed by cascade.
func (r *AttemptRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockPair(ctx, tx, existing.CandidateID, existing.PositionID); err != nil {
		return nil, err
	}

	var wasLatest bool
	err = tx.QueryRow(ctx,
		`DELETE FROM test_attempts WHERE id = $1 RETURNING is_latest`, id,
	).Scan(&wasLatest)
	if err != nil {
		return nil, translate(err)
	}

	if wasLatest {
		_, err = tx.Exec(ctx,
			`UPDATE test_attempts SET is_latest = TRUE
			 WHERE id = (
				SELECT id FROM test_attempts
				WHERE candidate_id = $1 AND position_id = $2
				ORDER BY attempt_number DESC
				LIMIT 1
			 )`, existing.CandidateID, existing.PositionID,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return existing, nil
}

// ListExpired returns in-progress attempts whose deadline passed before the cutoff.
func (r *AttemptRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM test_attempts a
		 WHERE a.status = $1 AND a.expires_at < $2
		 ORDER BY a.expires_at ASC
		 LIMIT $3`, model.AttemptStatusInProgress, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// List retrieves attempts for the admin listing with optional filters and pagination.
func (r *AttemptRepository) List(ctx context.Context, f model.AttemptFilter) ([]model.AttemptSummary, int64, error) {
	baseQuery := `
		FROM test_attempts a
		JOIN candidates c ON c.id = a.candidate_id
		JOIN positions p ON p.id = a.position_id
		LEFT JOIN test_results r ON r.attempt_id = a.id
		WHERE 1=1
	`
	args := []any{}

	if f.Status != nil {
		args = append(args, *f.Status)
		baseQuery += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if f.CandidateID != nil {
		args = append(args, *f.CandidateID)
		baseQuery += fmt.Sprintf(" AND a.candidate_id = $%d", len(args))
	}
	if f.PositionID != nil {
		args = append(args, *f.PositionID)
		baseQuery += fmt.Sprintf(" AND a.position_id = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + attemptColumns + `, c.name, c.email, p.name, r.score ` + baseQuery +
		fmt.Sprintf(" ORDER BY a.started_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.AttemptSummary{}
	for rows.Next() {
		var s model.AttemptSummary
		if err := scanAttempt(rows, &s.Attempt, &s.CandidateName, &s.CandidateEmail, &s.PositionName, &s.Score); err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// GetSummary retrieves a single attempt row of the admin listing.
func (r *AttemptRepository) GetSummary(ctx context.Context, id uuid.UUID) (*model.AttemptSummary, error) {
	s := &model.AttemptSummary{}
	var res nullableResult
	dest := append([]any{&s.CandidateName, &s.CandidateEmail, &s.PositionName}, res.dest()...)
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`, c.name, c.email, p.name, `+resultColumns+`
		 FROM test_attempts a
		 JOIN candidates c ON c.id = a.candidate_id
		 JOIN positions p ON p.id = a.position_id
		 LEFT JOIN test_results r ON r.attempt_id = a.id
		 WHERE a.id = $1`, id,
	), &s.Attempt, dest...)
	if err != nil {
		return nil, translate(err)
	}
	s.Result = res.toResult(s.ID)
	if s.Result != nil {
		score := s.Result.Score
		s.Score = &score
	}
	return s, nil
}

// ListLive returns the in-progress attempts of a position with their proctor event counts.
func (r *AttemptRepository) ListLive(ctx context.Context, positionID uuid.UUID) ([]model.LiveAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.candidate_id, c.name, a.attempt_number, a.started_at, a.expires_at,
			(SELECT COUNT(*) FROM proctor_events e WHERE e.attempt_id = a.id)
		 FROM test_attempts a
		 JOIN candidates c ON c.id = a.candidate_id
		 WHERE a.position_id = $1 AND a.status = $2
		 ORDER BY a.started_at ASC`, positionID, model.AttemptStatusInProgress,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	live := []model.LiveAttempt{}
	for rows.Next() {
		var l model.LiveAttempt
		if err := rows.Scan(&l.AttemptID, &l.CandidateID, &l.CandidateName, &l.AttemptNumber,
			&l.StartedAt, &l.ExpiresAt, &l.ProctorEvents); err != nil {
			return nil, err
		}
		live = append(live, l)
	}
	return live, rows.Err()
}
