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

type positionManager interface {
	List(ctx context.Context) ([]model.Position, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Position, error)
	Create(ctx context.Context, req *model.PositionRequest) (*model.Position, error)
	Update(ctx context.Context, id uuid.UUID, req *model.PositionRequest) (*model.Position, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PositionHandler handles position CRUD endpoints.
type PositionHandler struct {
	positions positionManager
	log       zerolog.Logger
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positions positionManager, log zerolog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, log: log.With().Str("component", "position_handler").Logger()}
}

// List godoc
// GET /api/v1/admin/positions
func (h *PositionHandler) List(c *gin.Context) {
	positions, err := h.positions.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, positions)
}

// Get godoc
// GET /api/v1/admin/positions/:id
func (h *PositionHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	pos, err := h.positions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, pos)
}

// Create godoc
// POST /api/v1/admin/positions
func (h *PositionHandler) Create(c *gin.Context) {
	var req model.PositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pos, err := h.positions.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, pos)
}

// Update godoc
// PUT /api/v1/admin/positions/:id
func (h *PositionHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.PositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pos, err := h.positions.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, pos)
}

// Delete godoc
// DELETE /api/v1/admin/positions/:id
// Fails with DEPENDENCY_EXISTS while candidates are registered for the position.
func (h *PositionHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.positions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}
