package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/rs/zerolog"
)

type candidateManager interface {
	Create(ctx context.Context, req *model.CreateCandidateRequest) (*model.CreateCandidateResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Candidate, error)
	List(ctx context.Context, positionID *uuid.UUID, page, perPage int) ([]model.Candidate, *response.Pagination, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type sessionResetter interface {
	ResetCandidateSession(ctx context.Context, candidateID uuid.UUID) error
}

// CandidateHandler handles HR candidate management.
type CandidateHandler struct {
	candidates candidateManager
	sessions   sessionResetter
	log        zerolog.Logger
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(candidates candidateManager, sessions sessionResetter, log zerolog.Logger) *CandidateHandler {
	return &CandidateHandler{
		candidates: candidates,
		sessions:   sessions,
		log:        log.With().Str("component", "candidate_handler").Logger(),
	}
}

// Create godoc
// POST /api/v1/admin/candidates
// Registers a candidate. The access code is returned only in this response.
func (h *CandidateHandler) Create(c *gin.Context) {
	var req model.CreateCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.candidates.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// List godoc
// GET /api/v1/admin/candidates?position_id=&page=&per_page=
func (h *CandidateHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	var positionID *uuid.UUID
	if raw := c.Query("position_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		positionID = &id
	}

	items, pag, err := h.candidates.List(c.Request.Context(), positionID, page, perPage)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, items, pag)
}

// Get godoc
// GET /api/v1/admin/candidates/:id
func (h *CandidateHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	cand, err := h.candidates.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, cand)
}

// Delete godoc
// DELETE /api/v1/admin/candidates/:id
// Removes the candidate together with their attempts and results.
func (h *CandidateHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.candidates.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.sessions.ResetCandidateSession(c.Request.Context(), id); err != nil {
		h.log.Warn().Err(err).Str("candidate_id", id.String()).Msg("Failed to drop session of deleted candidate")
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// ResetSession godoc
// POST /api/v1/admin/candidates/:id/reset-session
// Clears the candidate's active login so they can sign in from another device.
func (h *CandidateHandler) ResetSession(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.ResetCandidateSession(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("candidate_id", id.String()).Int("admin_id", adminID(c)).Msg("Candidate session reset")
	response.Success(c, http.StatusOK, gin.H{"candidate_id": id})
}
