package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/rs/zerolog"
)

type attemptOwner interface {
	GetOwnedAttempt(ctx context.Context, id, candidateID uuid.UUID) (*model.Attempt, error)
}

type progressKeeper interface {
	SaveProgress(ctx context.Context, attemptID uuid.UUID, snap model.ProgressSnapshot) (*model.Progress, error)
	GetProgress(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error)
	ResetProgress(ctx context.Context, attemptID uuid.UUID) error
}

// ProgressHandler serves autosave endpoints for in-flight attempts.
type ProgressHandler struct {
	attempts attemptOwner
	progress progressKeeper
	log      zerolog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(attempts attemptOwner, progress progressKeeper, log zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		attempts: attempts,
		progress: progress,
		log:      log.With().Str("component", "progress_handler").Logger(),
	}
}

// Save godoc
// POST /api/v1/test-progress/save
// Replaces the attempt's progress snapshot. Idempotent; the last write wins.
func (h *ProgressHandler) Save(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !requireSelf(c, claims, req.CandidateID) {
		return
	}
	if _, err := h.attempts.GetOwnedAttempt(c.Request.Context(), req.AttemptID, claims.CandidateID); err != nil {
		respondError(c, h.log, err)
		return
	}

	p, err := h.progress.SaveProgress(c.Request.Context(), req.AttemptID, req.Progress)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt_id": p.AttemptID, "saved_at": p.SavedAt})
}

// Get godoc
// GET /api/v1/test-progress/get/:attemptId
// Returns the latest snapshot, or null when nothing was saved yet.
func (h *ProgressHandler) Get(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "attemptId")
	if !ok {
		return
	}
	if _, err := h.attempts.GetOwnedAttempt(c.Request.Context(), id, claims.CandidateID); err != nil {
		respondError(c, h.log, err)
		return
	}

	p, err := h.progress.GetProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, p)
}

// Reset godoc
// DELETE /api/v1/test-progress/reset
// Discards the attempt's saved progress.
func (h *ProgressHandler) Reset(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	var req model.ResetProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if _, err := h.attempts.GetOwnedAttempt(c.Request.Context(), req.AttemptID, claims.CandidateID); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.progress.ResetProgress(c.Request.Context(), req.AttemptID); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt_id": req.AttemptID})
}
