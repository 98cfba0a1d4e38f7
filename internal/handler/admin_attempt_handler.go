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

type attemptAdmin interface {
	ListAll(ctx context.Context, f model.AttemptFilter) ([]model.AttemptSummary, int64, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*model.AttemptDetail, error)
	ResetAttempt(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	DeleteAttempt(ctx context.Context, id uuid.UUID) error
}

type analyticsReporter interface {
	Report(ctx context.Context, period model.AnalyticsPeriod) (*model.AttemptAnalytics, error)
}

// attemptListQuery is the admin listing filter.
type attemptListQuery struct {
	Status      string `form:"status" binding:"omitempty,oneof=in_progress completed abandoned"`
	CandidateID string `form:"candidate_id" binding:"omitempty,uuid"`
	PositionID  string `form:"position_id" binding:"omitempty,uuid"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PerPage     int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// AdminAttemptHandler serves HR attempt management and analytics.
type AdminAttemptHandler struct {
	attempts  attemptAdmin
	analytics analyticsReporter
	log       zerolog.Logger
}

// NewAdminAttemptHandler creates a new AdminAttemptHandler.
func NewAdminAttemptHandler(attempts attemptAdmin, analytics analyticsReporter, log zerolog.Logger) *AdminAttemptHandler {
	return &AdminAttemptHandler{
		attempts:  attempts,
		analytics: analytics,
		log:       log.With().Str("component", "admin_attempt_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/admin/attempts/attempts?status=&candidate_id=&position_id=&page=&per_page=
func (h *AdminAttemptHandler) List(c *gin.Context) {
	var q attemptListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	f := q.filter()
	items, total, err := h.attempts.ListAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, items, response.NewPagination(f.Page, f.PerPage, int(total)))
}

// Get godoc
// GET /api/v1/admin/attempts/attempts/:id
// Returns the attempt with its result and proctor event counts.
func (h *AdminAttemptHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.attempts.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

// Reset godoc
// PATCH /api/v1/admin/attempts/attempts/:id/reset
// Abandons an in-progress attempt so the candidate can start the next one.
func (h *AdminAttemptHandler) Reset(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	a, err := h.attempts.ResetAttempt(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("attempt_id", id.String()).Int("admin_id", adminID(c)).Msg("Attempt reset")
	response.Success(c, http.StatusOK, a)
}

// Delete godoc
// DELETE /api/v1/admin/attempts/attempts/:id
func (h *AdminAttemptHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.attempts.DeleteAttempt(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("attempt_id", id.String()).Int("admin_id", adminID(c)).Msg("Attempt deleted")
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// Analytics godoc
// GET /api/v1/admin/attempts/analytics?period=7d|30d|90d|all
func (h *AdminAttemptHandler) Analytics(c *gin.Context) {
	period := model.AnalyticsPeriod(c.DefaultQuery("period", string(model.Period30Days)))

	report, err := h.analytics.Report(c.Request.Context(), period)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

func (q attemptListQuery) filter() model.AttemptFilter {
	f := model.AttemptFilter{Page: q.Page, PerPage: q.PerPage}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if q.Status != "" {
		status := model.AttemptStatus(q.Status)
		f.Status = &status
	}
	if id, err := uuid.Parse(q.CandidateID); err == nil {
		f.CandidateID = &id
	}
	if id, err := uuid.Parse(q.PositionID); err == nil {
		f.PositionID = &id
	}
	return f
}
