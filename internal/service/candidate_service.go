package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/proctorly/interview-backend/internal/response"
)

// ErrEmailTaken is returned when registering a candidate with an existing email.
var ErrEmailTaken = errors.New("email already registered")

const (
	accessCodeLength   = 8
	accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// passwordHasher hashes candidate access codes.
type passwordHasher interface {
	HashPassword(password string) (string, error)
}

// CandidateService handles candidate registration and lookup.
type CandidateService struct {
	candidates CandidateStore
	positions  PositionStore
	hasher     passwordHasher
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(candidates CandidateStore, positions PositionStore, hasher passwordHasher) *CandidateService {
	return &CandidateService{candidates: candidates, positions: positions, hasher: hasher}
}

// Create registers a candidate and returns the plaintext access code once.
func (s *CandidateService) Create(ctx context.Context, req *model.CreateCandidateRequest) (*model.CreateCandidateResponse, error) {
	if _, err := s.positions.GetByID(ctx, req.PositionID); err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}

	code, err := GenerateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}
	hash, err := s.hasher.HashPassword(code)
	if err != nil {
		return nil, fmt.Errorf("hash access code: %w", err)
	}

	c := &model.Candidate{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          req.Phone,
		PositionID:     req.PositionID,
		ResumeURL:      req.ResumeURL,
		VideoURL:       req.VideoURL,
		AccessCodeHash: hash,
	}
	if err := s.candidates.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create candidate: %w", err)
	}

	return &model.CreateCandidateResponse{Candidate: *c, AccessCode: code}, nil
}

// Get returns a candidate by ID.
func (s *CandidateService) Get(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	return s.candidates.GetByID(ctx, id)
}

// List returns candidates with an optional position filter.
func (s *CandidateService) List(ctx context.Context, positionID *uuid.UUID, page, perPage int) ([]model.Candidate, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	items, total, err := s.candidates.ListPaginated(ctx, positionID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}

	return items, response.NewPagination(page, perPage, total), nil
}

// Delete removes a candidate and all their attempts.
func (s *CandidateService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.candidates.Delete(ctx, id)
}

// GenerateAccessCode returns a random code without easily confused characters.
func GenerateAccessCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := 0; i < accessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
