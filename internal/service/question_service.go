package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// QuestionService manages position question banks and builds attempt papers.
type QuestionService struct {
	questions QuestionStore
	positions PositionStore
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, positions PositionStore, rdb *redis.Client, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		positions: positions,
		rdb:       rdb,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// ListByPosition returns a position's full bank, including correct answers.
func (s *QuestionService) ListByPosition(ctx context.Context, positionID uuid.UUID) ([]model.Question, error) {
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	return s.questions.ListByPosition(ctx, positionID)
}

// ValidateQuestion checks that option ids are unique and the correct option exists.
func ValidateQuestion(req *model.AddQuestionRequest) error {
	ids := make(map[string]struct{}, len(req.Options))
	for _, o := range req.Options {
		if o.Text == "" && o.ImageURL == "" {
			return fmt.Errorf("%w: option %q needs text or an image", ErrValidation, o.ID)
		}
		if _, dup := ids[o.ID]; dup {
			return fmt.Errorf("%w: duplicate option id %q", ErrValidation, o.ID)
		}
		ids[o.ID] = struct{}{}
	}
	if _, ok := ids[req.CorrectOption]; !ok {
		return fmt.Errorf("%w: correct_option %q is not one of the options", ErrValidation, req.CorrectOption)
	}
	return nil
}

// AddQuestion adds a question to a position's bank.
func (s *QuestionService) AddQuestion(ctx context.Context, positionID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if err := ValidateQuestion(req); err != nil {
		return nil, err
	}
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}

	q := &model.Question{
		PositionID:    positionID,
		QuestionText:  req.QuestionText,
		ImageURL:      req.ImageURL,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes a question from a position's bank. Results keep their
// denormalized copy of the question.
func (s *QuestionService) DeleteQuestion(ctx context.Context, positionID, questionID uuid.UUID) error {
	return s.questions.Delete(ctx, positionID, questionID)
}

// BuildPaper maps the attempt's questions to their candidate-facing form in attempt order.
func BuildPaper(a *model.Attempt, pos *model.Position, bank []model.Question) (*model.Paper, error) {
	byID := make(map[uuid.UUID]*model.Question, len(bank))
	for i := range bank {
		byID[bank[i].ID] = &bank[i]
	}

	paper := &model.Paper{
		AttemptID:       a.ID,
		PositionID:      a.PositionID,
		DurationMinutes: pos.DurationMinutes,
		ExpiresAt:       a.ExpiresAt,
		Questions:       make([]model.QuestionForCandidate, 0, len(a.QuestionIDs)),
	}

	for _, qid := range a.QuestionIDs {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		var out model.QuestionForCandidate
		if err := copier.Copy(&out, q); err != nil {
			return nil, fmt.Errorf("map question: %w", err)
		}
		paper.Questions = append(paper.Questions, out)
	}
	return paper, nil
}

// GetPaper returns the attempt's paper, cached in Redis until shortly after the attempt expires.
func (s *QuestionService) GetPaper(ctx context.Context, a *model.Attempt) (*model.Paper, error) {
	key := config.CacheKey.AttemptPaperKey(a.ID.String())

	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var paper model.Paper
		if err := json.Unmarshal(raw, &paper); err == nil {
			return &paper, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Paper cache read failed")
	}

	pos, err := s.positions.GetByID(ctx, a.PositionID)
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	bank, err := s.questions.ListByIDs(ctx, a.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	paper, err := BuildPaper(a, pos, bank)
	if err != nil {
		return nil, err
	}

	ttl := time.Until(a.ExpiresAt) + time.Hour
	if data, err := json.Marshal(paper); err == nil && ttl > 0 {
		if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to cache paper")
		}
	}
	return paper, nil
}

// InvalidatePaper drops the cached paper of an attempt.
func (s *QuestionService) InvalidatePaper(ctx context.Context, attemptID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.AttemptPaperKey(attemptID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to drop cached paper")
	}
}
