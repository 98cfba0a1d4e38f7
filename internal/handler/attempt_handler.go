package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/rs/zerolog"
)

type attemptLifecycle interface {
	CreateAttempt(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error)
	StartOrResume(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, bool, error)
	GetLatestAttempt(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error)
	ListAttempts(ctx context.Context, candidateID, positionID uuid.UUID) ([]model.Attempt, error)
	GetOwnedAttempt(ctx context.Context, id, candidateID uuid.UUID) (*model.Attempt, error)
}

type paperSource interface {
	GetPaper(ctx context.Context, a *model.Attempt) (*model.Paper, error)
}

type proctorReporter interface {
	Report(ctx context.Context, a *model.Attempt, req *model.ReportProctorEventRequest) error
}

// AttemptHandler serves the candidate-facing attempt lifecycle.
type AttemptHandler struct {
	attempts attemptLifecycle
	papers   paperSource
	proctor  proctorReporter
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts attemptLifecycle, papers paperSource, proctor proctorReporter, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		papers:   papers,
		proctor:  proctor,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// Create godoc
// POST /api/v1/test-attempt/create
// Creates the next attempt for the candidate and position. 409 while one is in progress.
func (h *AttemptHandler) Create(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	var req model.CreateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !requireSelf(c, claims, req.CandidateID) || !requirePosition(c, claims, req.PositionID) {
		return
	}

	a, err := h.attempts.CreateAttempt(c.Request.Context(), claims.CandidateID, req.PositionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, a)
}

// Start godoc
// POST /api/v1/test-attempt/start
// Resumes the in-progress attempt for the position or creates a new one.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !requirePosition(c, claims, req.PositionID) {
		return
	}

	a, created, err := h.attempts.StartOrResume(c.Request.Context(), claims.CandidateID, req.PositionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"attempt": a, "resumed": !created})
}

// Latest godoc
// GET /api/v1/test-attempt/latest/:candidateId/position/:positionId
// Returns the latest attempt of the pair, or null when the candidate has none.
func (h *AttemptHandler) Latest(c *gin.Context) {
	claims, candidateID, positionID, ok := h.pairParams(c)
	if !ok {
		return
	}

	a, err := h.attempts.GetLatestAttempt(c.Request.Context(), candidateID, positionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if a != nil && a.CandidateID != claims.CandidateID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, a)
}

// List godoc
// GET /api/v1/test-attempt/candidate/:candidateId/position/:positionId
// Lists every attempt of the pair in attempt-number order.
func (h *AttemptHandler) List(c *gin.Context) {
	_, candidateID, positionID, ok := h.pairParams(c)
	if !ok {
		return
	}

	attempts, err := h.attempts.ListAttempts(c.Request.Context(), candidateID, positionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, attempts)
}

// Paper godoc
// GET /api/v1/test-attempt/:attemptId/paper
// Returns the attempt's questions in attempt order, without correct answers.
func (h *AttemptHandler) Paper(c *gin.Context) {
	a, ok := h.ownedAttempt(c)
	if !ok {
		return
	}
	if !a.InProgress() {
		respondError(c, h.log, service.ErrInvalidState)
		return
	}

	paper, err := h.papers.GetPaper(c.Request.Context(), a)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// ReportEvent godoc
// POST /api/v1/test-attempt/:attemptId/events
// Records a proctoring signal against an in-progress attempt.
func (h *AttemptHandler) ReportEvent(c *gin.Context) {
	a, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	var req model.ReportProctorEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.proctor.Report(c.Request.Context(), a, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"status": "queued"})
}

// pairParams reads and authorizes the :candidateId/:positionId path pair.
func (h *AttemptHandler) pairParams(c *gin.Context) (*service.Claims, uuid.UUID, uuid.UUID, bool) {
	claims, ok := candidateClaims(c)
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	candidateID, ok := parseUUIDParam(c, "candidateId")
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	positionID, ok := parseUUIDParam(c, "positionId")
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	if !requireSelf(c, claims, candidateID) {
		return nil, uuid.Nil, uuid.Nil, false
	}
	return claims, candidateID, positionID, true
}

// ownedAttempt loads the :attemptId attempt and checks it belongs to the caller.
func (h *AttemptHandler) ownedAttempt(c *gin.Context) (*model.Attempt, bool) {
	claims, ok := candidateClaims(c)
	if !ok {
		return nil, false
	}
	id, ok := parseUUIDParam(c, "attemptId")
	if !ok {
		return nil, false
	}

	a, err := h.attempts.GetOwnedAttempt(c.Request.Context(), id, claims.CandidateID)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	return a, true
}

// requirePosition rejects positions the candidate was not invited to.
func requirePosition(c *gin.Context, claims *service.Claims, positionID uuid.UUID) bool {
	if claims.PositionID != uuid.Nil && positionID != claims.PositionID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return false
	}
	return true
}
