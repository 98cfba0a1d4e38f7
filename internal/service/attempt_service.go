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

// paperInvalidator drops cached attempt papers.
type paperInvalidator interface {
	InvalidatePaper(ctx context.Context, attemptID uuid.UUID)
}

// progressResetter discards an attempt's saved progress.
type progressResetter interface {
	ResetProgress(ctx context.Context, attemptID uuid.UUID) error
}

// proctorCounter reports proctor events per type for an attempt.
type proctorCounter interface {
	CountsByAttempt(ctx context.Context, attemptID uuid.UUID) (map[model.ProctorEventType]int64, error)
}

// AttemptService manages the attempt lifecycle: creation, lookup, reset and deletion.
type AttemptService struct {
	attempts   AttemptStore
	positions  PositionStore
	candidates CandidateStore
	questions  QuestionStore
	progress   progressResetter
	papers     paperInvalidator
	proctor    proctorCounter
	publisher  Publisher
	log        zerolog.Logger
	now        func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	positions PositionStore,
	candidates CandidateStore,
	questions QuestionStore,
	progress progressResetter,
	papers paperInvalidator,
	proctor proctorCounter,
	publisher Publisher,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:   attempts,
		positions:  positions,
		candidates: candidates,
		questions:  questions,
		progress:   progress,
		papers:     papers,
		proctor:    proctor,
		publisher:  publisher,
		log:        log.With().Str("component", "attempt_service").Logger(),
		now:        time.Now,
	}
}

// CreateAttempt starts a new attempt for the pair. It fails with ErrConflict while
// another attempt of the pair is in progress. The new attempt is numbered one past
// the highest existing number and becomes the pair's only latest attempt.
func (s *AttemptService) CreateAttempt(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	if _, err := s.candidates.GetByID(ctx, candidateID); err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	ids, err := s.questions.DrawRandomIDs(ctx, positionID, pos.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}

	now := s.now().UTC()
	a := &model.Attempt{
		Status:      model.AttemptStatusInProgress,
		IsLatest:    true,
		QuestionIDs: ids,
		StartedAt:   now,
		ExpiresAt:   now.Add(pos.Duration()),
	}

	err = s.attempts.InPairTx(ctx, candidateID, positionID, func(tx repository.PairTx) error {
		active, err := tx.HasActive(ctx)
		if err != nil {
			return fmt.Errorf("check active attempt: %w", err)
		}
		if active {
			return ErrConflict
		}

		last, err := tx.MaxAttemptNumber(ctx)
		if err != nil {
			return fmt.Errorf("max attempt number: %w", err)
		}
		a.AttemptNumber = last + 1

		if err := tx.ClearLatest(ctx); err != nil {
			return fmt.Errorf("clear latest: %w", err)
		}
		if err := tx.Insert(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrConflict
			}
			return fmt.Errorf("insert attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AttemptsCreated.Inc()
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("candidate_id", candidateID.String()).
		Int("attempt_number", a.AttemptNumber).
		Msg("Attempt created")

	s.publisher.Publish(ctx, model.MonitorEvent{
		Type:        model.MonitorAttemptStarted,
		AttemptID:   a.ID,
		CandidateID: candidateID,
		PositionID:  positionID,
		Data:        map[string]any{"attempt_number": a.AttemptNumber, "expires_at": a.ExpiresAt},
		At:          now,
	})

	return a, nil
}

// StartOrResume returns the pair's in-progress attempt, or creates one.
// The boolean reports whether a new attempt was created.
func (s *AttemptService) StartOrResume(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, bool, error) {
	latest, err := s.GetLatestAttempt(ctx, candidateID, positionID)
	if err != nil {
		return nil, false, err
	}
	if latest != nil && latest.InProgress() {
		return latest, false, nil
	}

	a, err := s.CreateAttempt(ctx, candidateID, positionID)
	if errors.Is(err, ErrConflict) {
		// Lost a race with a concurrent start; resume the winner.
		latest, lerr := s.GetLatestAttempt(ctx, candidateID, positionID)
		if lerr == nil && latest != nil && latest.InProgress() {
			return latest, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// GetLatestAttempt returns the pair's latest attempt, or nil when none exists.
func (s *AttemptService) GetLatestAttempt(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetLatest(ctx, candidateID, positionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns every attempt of the pair ordered by attempt number.
func (s *AttemptService) ListAttempts(ctx context.Context, candidateID, positionID uuid.UUID) ([]model.Attempt, error) {
	attempts, err := s.attempts.ListByPair(ctx, candidateID, positionID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// GetAttempt returns an attempt with its result when completed.
func (s *AttemptService) GetAttempt(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetWithResult(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// GetOwnedAttempt returns the attempt only when it belongs to the candidate.
func (s *AttemptService) GetOwnedAttempt(ctx context.Context, id, candidateID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.CandidateID != candidateID {
		return nil, ErrForbidden
	}
	return a, nil
}

// ListAll returns the admin attempt listing.
func (s *AttemptService) ListAll(ctx context.Context, f model.AttemptFilter) ([]model.AttemptSummary, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}
	items, total, err := s.attempts.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	return items, total, nil
}

// GetDetail returns the admin view of an attempt including proctor event counts.
func (s *AttemptService) GetDetail(ctx context.Context, id uuid.UUID) (*model.AttemptDetail, error) {
	summary, err := s.attempts.GetSummary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	counts, err := s.proctor.CountsByAttempt(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id.String()).Msg("Failed to load proctor counts")
		counts = map[model.ProctorEventType]int64{}
	}

	return &model.AttemptDetail{AttemptSummary: *summary, ProctorEventCounts: counts}, nil
}

// ResetAttempt abandons an in-progress attempt and discards its progress.
// The attempt keeps its latest flag until the candidate starts a new one.
func (s *AttemptService) ResetAttempt(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if !a.InProgress() {
		return nil, ErrInvalidState
	}

	if err := s.attempts.Abandon(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("abandon attempt: %w", err)
	}
	a.Status = model.AttemptStatusAbandoned

	if err := s.progress.ResetProgress(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id.String()).Msg("Failed to discard progress of reset attempt")
	}
	s.papers.InvalidatePaper(ctx, id)

	s.log.Info().Str("attempt_id", id.String()).Msg("Attempt reset")
	s.publisher.Publish(ctx, model.MonitorEvent{
		Type:        model.MonitorAttemptReset,
		AttemptID:   a.ID,
		CandidateID: a.CandidateID,
		PositionID:  a.PositionID,
		At:          s.now().UTC(),
	})

	return a, nil
}

// DeleteAttempt hard-deletes an attempt. When it was the latest attempt of its
// pair, the highest remaining attempt becomes latest.
func (s *AttemptService) DeleteAttempt(ctx context.Context, id uuid.UUID) error {
	a, err := s.attempts.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}

	if err := s.progress.ResetProgress(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id.String()).Msg("Failed to drop cached progress of deleted attempt")
	}
	s.papers.InvalidatePaper(ctx, id)

	s.log.Info().
		Str("attempt_id", id.String()).
		Str("candidate_id", a.CandidateID.String()).
		Msg("Attempt deleted")
	return nil
}

// ListExpired returns in-progress attempts whose deadline plus grace has passed.
func (s *AttemptService) ListExpired(ctx context.Context, grace time.Duration, limit int) ([]model.Attempt, error) {
	return s.attempts.ListExpired(ctx, s.now().Add(-grace), limit)
}
