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

type questionBank interface {
	ListByPosition(ctx context.Context, positionID uuid.UUID) ([]model.Question, error)
	AddQuestion(ctx context.Context, positionID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error)
	DeleteQuestion(ctx context.Context, positionID, questionID uuid.UUID) error
}

// QuestionHandler manages a position's question bank.
type QuestionHandler struct {
	questions questionBank
	log       zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions questionBank, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, log: log.With().Str("component", "question_handler").Logger()}
}

// List godoc
// GET /api/v1/admin/positions/:id/questions
// Returns the full bank including correct answers.
func (h *QuestionHandler) List(c *gin.Context) {
	positionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	questions, err := h.questions.ListByPosition(c.Request.Context(), positionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, questions)
}

// Add godoc
// POST /api/v1/admin/positions/:id/questions
func (h *QuestionHandler) Add(c *gin.Context) {
	positionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.AddQuestion(c.Request.Context(), positionID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// Delete godoc
// DELETE /api/v1/admin/positions/:id/questions/:questionId
// Past results keep their own copy of the question text and options.
func (h *QuestionHandler) Delete(c *gin.Context) {
	positionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	questionID, ok := parseUUIDParam(c, "questionId")
	if !ok {
		return
	}

	if err := h.questions.DeleteQuestion(c.Request.Context(), positionID, questionID); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": questionID})
}
