package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/rs/zerolog"
)

type submitter interface {
	Submit(ctx context.Context, in service.SubmitInput) (*model.SubmitResponse, error)
}

// SubmitHandler grades multipart submissions.
type SubmitHandler struct {
	attempts    attemptOwner
	submissions submitter
	log         zerolog.Logger
}

// NewSubmitHandler creates a new SubmitHandler.
func NewSubmitHandler(attempts attemptOwner, submissions submitter, log zerolog.Logger) *SubmitHandler {
	return &SubmitHandler{
		attempts:    attempts,
		submissions: submissions,
		log:         log.With().Str("component", "submit_handler").Logger(),
	}
}

// Submit godoc
// POST /api/v1/test-attempt/submit
// Grades the attempt from a multipart form. The answers field is a JSON array and an
// optional "recording" file is queued for upload without delaying the response.
func (h *SubmitHandler) Submit(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	var form model.SubmitForm
	if fields := validator.BindForm(c, &form); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attemptID, err := uuid.Parse(form.AttemptID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	if form.CandidateID != "" {
		candidateID, err := uuid.Parse(form.CandidateID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		if !requireSelf(c, claims, candidateID) {
			return
		}
	}

	var answers []model.SubmittedAnswer
	if err := json.Unmarshal([]byte(form.Answers), &answers); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"answers": "answers must be a JSON array of {question_id, selected_option_id}"})
		return
	}
	for i := range answers {
		if fields := validator.Validate(&answers[i]); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	if _, err := h.attempts.GetOwnedAttempt(c.Request.Context(), attemptID, claims.CandidateID); err != nil {
		respondError(c, h.log, err)
		return
	}

	in := service.SubmitInput{
		AttemptID:          attemptID,
		Answers:            answers,
		TimeTakenSeconds:   form.TimeTakenSeconds,
		TimeTakenFormatted: form.TimeTakenFormatted,
		Auto:               form.Auto,
	}

	fileHeader, err := c.FormFile("recording")
	switch {
	case err == nil:
		file, err := fileHeader.Open()
		if err != nil {
			h.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Unreadable recording, submitting without it")
			break
		}
		defer file.Close()
		in.Recording = &service.RecordingUpload{
			Reader:      file,
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
		}
	case !errors.Is(err, http.ErrMissingFile):
		h.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Recording form field unreadable")
	}

	res, err := h.submissions.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}
