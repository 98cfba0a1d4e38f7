package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/rs/zerolog"
)

// attemptGetter loads a single attempt.
type attemptGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
}

// ProgressService handles progress autosave. Snapshots are written to Redis
// synchronously and persisted to PostgreSQL by the progress worker.
type ProgressService struct {
	attempts  attemptGetter
	cache     ProgressCache
	store     ProgressStore
	publisher Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewProgressService creates a new ProgressService.
func NewProgressService(attempts attemptGetter, cache ProgressCache, store ProgressStore, publisher Publisher, log zerolog.Logger) *ProgressService {
	return &ProgressService{
		attempts:  attempts,
		cache:     cache,
		store:     store,
		publisher: publisher,
		log:       log.With().Str("component", "progress_service").Logger(),
		now:       time.Now,
	}
}

// ValidateSnapshot checks the structural invariants of a snapshot.
func ValidateSnapshot(snap *model.ProgressSnapshot) error {
	if snap.TimeLeft < 0 {
		return fmt.Errorf("%w: time_left must not be negative", ErrValidation)
	}
	if snap.CurrentQuestionIndex < 0 {
		return fmt.Errorf("%w: current_question_index must not be negative", ErrValidation)
	}
	if len(snap.Questions) > 0 && snap.CurrentQuestionIndex >= len(snap.Questions) {
		return fmt.Errorf("%w: current_question_index out of range", ErrValidation)
	}
	seen := make(map[uuid.UUID]struct{}, len(snap.Questions))
	for _, q := range snap.Questions {
		switch q.Status {
		case model.QuestionUnvisited, model.QuestionAnswered, model.QuestionVisited:
		default:
			return fmt.Errorf("%w: unknown question status %d", ErrValidation, q.Status)
		}
		if _, dup := seen[q.QuestionID]; dup {
			return fmt.Errorf("%w: duplicate question %s", ErrValidation, q.QuestionID)
		}
		seen[q.QuestionID] = struct{}{}
	}
	return nil
}

// SaveProgress replaces the attempt's snapshot. The attempt must exist and be in progress.
func (s *ProgressService) SaveProgress(ctx context.Context, attemptID uuid.UUID, snap model.ProgressSnapshot) (*model.Progress, error) {
	if err := ValidateSnapshot(&snap); err != nil {
		return nil, err
	}

	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if !a.InProgress() {
		return nil, fmt.Errorf("attempt %s is %s: %w", attemptID, a.Status, ErrNotFound)
	}

	p := &model.Progress{
		AttemptID:        attemptID,
		ProgressSnapshot: snap,
		SavedAt:          s.now().UTC(),
	}

	if err := s.cache.Set(ctx, p); err != nil {
		return nil, fmt.Errorf("cache progress: %w", err)
	}

	// A submit may have finished the attempt and cleared its progress since the
	// check above; drop the entry this save just wrote.
	cur, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil || !cur.InProgress() {
		if derr := s.cache.Delete(ctx, attemptID); derr != nil {
			s.log.Warn().Err(derr).Str("attempt_id", attemptID.String()).Msg("Failed to drop progress of finished attempt")
		}
		if err != nil {
			return nil, fmt.Errorf("get attempt: %w", err)
		}
		return nil, fmt.Errorf("attempt %s is %s: %w", attemptID, cur.Status, ErrNotFound)
	}

	if err := s.cache.EnqueuePersist(ctx, attemptID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Persist queue unavailable, writing through")
		if err := s.store.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("persist progress: %w", err)
		}
	}

	metrics.ProgressSaves.Inc()
	s.publisher.Publish(ctx, model.MonitorEvent{
		Type:        model.MonitorProgressSaved,
		AttemptID:   attemptID,
		CandidateID: a.CandidateID,
		PositionID:  a.PositionID,
		Data: map[string]any{
			"answered":               answeredCount(snap.Questions),
			"total":                  len(snap.Questions),
			"current_question_index": snap.CurrentQuestionIndex,
			"time_left":              snap.TimeLeft,
		},
		At: p.SavedAt,
	})

	return p, nil
}

// GetProgress returns the attempt's latest snapshot, or nil when none was saved.
// A cache miss falls back to PostgreSQL and refills the cache.
func (s *ProgressService) GetProgress(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	p, err := s.cache.Get(ctx, attemptID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Progress cache read failed, using database")
	}

	p, err = s.store.Get(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	if err := s.cache.Set(ctx, p); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to refill progress cache")
	}
	return p, nil
}

// ResetProgress discards the attempt's snapshot from the cache and the database.
func (s *ProgressService) ResetProgress(ctx context.Context, attemptID uuid.UUID) error {
	if err := s.cache.Delete(ctx, attemptID); err != nil {
		return fmt.Errorf("delete cached progress: %w", err)
	}
	if err := s.store.Delete(ctx, attemptID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// Persist writes the currently cached snapshot to PostgreSQL. A missing cache
// entry means the progress was reset or the attempt finished, so nothing is written.
func (s *ProgressService) Persist(ctx context.Context, attemptID uuid.UUID) error {
	p, err := s.cache.Get(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cached progress: %w", err)
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			// Attempt deleted after the save was queued.
			return nil
		}
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func answeredCount(questions []model.ProgressQuestion) int {
	n := 0
	for _, q := range questions {
		if q.SelectedOption != nil && *q.SelectedOption != "" {
			n++
		}
	}
	return n
}
