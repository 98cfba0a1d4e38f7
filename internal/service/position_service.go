package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
)

// ErrPositionInUse is returned when deleting a position that still has candidates.
var ErrPositionInUse = errors.New("position still has candidates")

// PositionService handles position business logic.
type PositionService struct {
	positions PositionStore
}

// NewPositionService creates a new PositionService.
func NewPositionService(positions PositionStore) *PositionService {
	return &PositionService{positions: positions}
}

func (s *PositionService) List(ctx context.Context) ([]model.Position, error) {
	return s.positions.List(ctx)
}

func (s *PositionService) Get(ctx context.Context, id uuid.UUID) (*model.Position, error) {
	return s.positions.GetByID(ctx, id)
}

func (s *PositionService) Create(ctx context.Context, req *model.PositionRequest) (*model.Position, error) {
	p := positionFromRequest(req)
	if err := s.positions.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create position: %w", err)
	}
	return p, nil
}

func (s *PositionService) Update(ctx context.Context, id uuid.UUID, req *model.PositionRequest) (*model.Position, error) {
	p := positionFromRequest(req)
	p.ID = id
	if err := s.positions.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update position: %w", err)
	}
	return p, nil
}

func (s *PositionService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.positions.Delete(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return ErrPositionInUse
	}
	return err
}

func positionFromRequest(req *model.PositionRequest) *model.Position {
	return &model.Position{
		Name:            req.Name,
		Salary:          req.Salary,
		Experience:      req.Experience,
		Vacancies:       req.Vacancies,
		Shift:           req.Shift,
		JobType:         req.JobType,
		QuestionCount:   req.QuestionCount,
		DurationMinutes: req.DurationMinutes,
	}
}
