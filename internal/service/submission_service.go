package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/rs/zerolog"
)

// RecordingUpload is an optional session recording attached to a submission.
type RecordingUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// SubmitInput is a single submission of an attempt.
type SubmitInput struct {
	AttemptID          uuid.UUID
	Answers            []model.SubmittedAnswer
	TimeTakenSeconds   int
	TimeTakenFormatted string
	// Auto marks a timer-driven submission, which may leave questions unanswered.
	// It is honored only once the attempt's deadline is within the auto-submit skew.
	Auto      bool
	Recording *RecordingUpload
}

// progressAccess is the slice of ProgressService used at submission time.
type progressAccess interface {
	GetProgress(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error)
	ResetProgress(ctx context.Context, attemptID uuid.UUID) error
}

// SubmissionService grades and finalizes attempts.
type SubmissionService struct {
	attempts   attemptGetter
	questions  QuestionStore
	results    ResultStore
	progress   progressAccess
	recordings RecordingSpooler
	publisher  Publisher
	log        zerolog.Logger
	now        func() time.Time
	// autoSkew is how long before the deadline a client auto-submit is still honored.
	autoSkew time.Duration
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	attempts attemptGetter,
	questions QuestionStore,
	results ResultStore,
	progress progressAccess,
	recordings RecordingSpooler,
	publisher Publisher,
	autoSkew time.Duration,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		attempts:   attempts,
		questions:  questions,
		results:    results,
		progress:   progress,
		recordings: recordings,
		publisher:  publisher,
		log:        log.With().Str("component", "submission_service").Logger(),
		now:        time.Now,
		autoSkew:   autoSkew,
	}
}

// Submit grades the attempt and completes it. Exactly one submission per attempt
// succeeds; later ones fail with ErrInvalidState and leave the stored result untouched.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*model.SubmitResponse, error) {
	a, err := s.attempts.GetByID(ctx, in.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if !a.InProgress() {
		return nil, ErrInvalidState
	}

	auto := in.Auto
	if auto && s.now().Before(a.ExpiresAt.Add(-s.autoSkew)) {
		// Only the deadline may close an attempt with questions unanswered.
		s.log.Warn().
			Str("attempt_id", a.ID.String()).
			Dur("before_deadline", a.ExpiresAt.Sub(s.now())).
			Msg("Early auto submission handled as manual")
		auto = false
	}

	selected, err := selectedOptions(a, in.Answers)
	if err != nil {
		return nil, err
	}

	if !auto && len(selected) < len(a.QuestionIDs) {
		return nil, fmt.Errorf("%w: %d of %d answered", ErrIncomplete, len(selected), len(a.QuestionIDs))
	}

	bank, err := s.questions.ListByIDs(ctx, a.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	if !auto {
		if err := checkOptions(bank, selected); err != nil {
			return nil, err
		}
	}

	breakdown, correct := Grade(a.QuestionIDs, bank, selected)
	total := len(a.QuestionIDs)

	formatted := in.TimeTakenFormatted
	if formatted == "" {
		formatted = FormatDuration(in.TimeTakenSeconds)
	}

	res := &model.Result{
		AttemptID:          a.ID,
		Score:              Score(correct, total),
		CorrectCount:       correct,
		TotalQuestions:     total,
		Answers:            breakdown,
		TimeTakenSeconds:   in.TimeTakenSeconds,
		TimeTakenFormatted: formatted,
		AutoSubmitted:      auto,
	}

	if err := s.results.CompleteWithResult(ctx, res); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	log := s.log.With().Str("attempt_id", a.ID.String()).Logger()

	if err := s.progress.ResetProgress(ctx, a.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to clear progress after submission")
	}

	if in.Recording != nil && in.Recording.Reader != nil {
		if err := s.recordings.SpoolRecording(ctx, res.ID, a.ID, in.Recording); err != nil {
			log.Error().Err(err).Msg("Failed to queue recording upload")
		}
	}

	mode := "manual"
	if auto {
		mode = "auto"
	}
	metrics.Submissions.WithLabelValues(mode).Inc()

	log.Info().
		Int("score", res.Score).
		Int("correct", correct).
		Int("total", total).
		Bool("auto", auto).
		Msg("Attempt submitted")

	s.publisher.Publish(ctx, model.MonitorEvent{
		Type:        model.MonitorAttemptSubmitted,
		AttemptID:   a.ID,
		CandidateID: a.CandidateID,
		PositionID:  a.PositionID,
		Data:        map[string]any{"score": res.Score, "auto": auto},
		At:          s.now().UTC(),
	})

	return &model.SubmitResponse{
		ResultID:       res.ID,
		Score:          res.Score,
		TotalQuestions: total,
		CorrectCount:   correct,
	}, nil
}

// AutoSubmitFromProgress submits the attempt with the answers of its saved progress.
// Used when the timer runs out without a client submission.
func (s *SubmissionService) AutoSubmitFromProgress(ctx context.Context, attemptID uuid.UUID) (*model.SubmitResponse, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if !a.InProgress() {
		return nil, ErrInvalidState
	}

	p, err := s.progress.GetProgress(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	var answers []model.SubmittedAnswer
	if p != nil {
		seen := make(map[uuid.UUID]struct{})
		for _, ans := range p.SelectedAnswers() {
			if _, dup := seen[ans.QuestionID]; dup || !a.HasQuestion(ans.QuestionID) {
				continue
			}
			seen[ans.QuestionID] = struct{}{}
			answers = append(answers, ans)
		}
	}

	elapsed := int(a.ExpiresAt.Sub(a.StartedAt).Seconds())
	if taken := int(s.now().Sub(a.StartedAt).Seconds()); taken < elapsed {
		elapsed = taken
	}

	return s.Submit(ctx, SubmitInput{
		AttemptID:        attemptID,
		Answers:          answers,
		TimeTakenSeconds: elapsed,
		Auto:             true,
	})
}

// selectedOptions validates answers against the attempt's question set and returns
// the selected option per answered question.
func selectedOptions(a *model.Attempt, answers []model.SubmittedAnswer) (map[uuid.UUID]string, error) {
	selected := make(map[uuid.UUID]string, len(answers))
	seen := make(map[uuid.UUID]struct{}, len(answers))

	for _, ans := range answers {
		if !a.HasQuestion(ans.QuestionID) {
			return nil, fmt.Errorf("%w: question %s is not part of this attempt", ErrValidation, ans.QuestionID)
		}
		if _, dup := seen[ans.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %s answered more than once", ErrValidation, ans.QuestionID)
		}
		seen[ans.QuestionID] = struct{}{}
		if ans.SelectedOptionID != "" {
			selected[ans.QuestionID] = ans.SelectedOptionID
		}
	}
	return selected, nil
}

// checkOptions rejects selections that name an option the question does not have.
func checkOptions(bank []model.Question, selected map[uuid.UUID]string) error {
	for i := range bank {
		sel, ok := selected[bank[i].ID]
		if !ok {
			continue
		}
		if _, found := bank[i].FindOption(sel); !found {
			return fmt.Errorf("%w: unknown option %q for question %s", ErrValidation, sel, bank[i].ID)
		}
	}
	return nil
}
