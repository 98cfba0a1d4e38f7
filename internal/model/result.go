package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerBreakdown is the scored outcome of one question, captured at submission time
// so later edits to the question bank do not change historical results.
type AnswerBreakdown struct {
	QuestionID          uuid.UUID `json:"question_id"`
	QuestionText        string    `json:"question_text"`
	QuestionImage       *string   `json:"question_image,omitempty"`
	SelectedOption      *string   `json:"selected_option"`
	SelectedOptionText  *string   `json:"selected_option_text"`
	SelectedOptionImage *string   `json:"selected_option_image,omitempty"`
	CorrectOption       string    `json:"correct_option"`
	CorrectOptionText   string    `json:"correct_option_text"`
	CorrectOptionImage  *string   `json:"correct_option_image,omitempty"`
	IsCorrect           bool      `json:"is_correct"`
}

// Result is the finalized, scored outcome of a completed attempt.
type Result struct {
	ID                 uuid.UUID         `json:"id"`
	AttemptID          uuid.UUID         `json:"attempt_id"`
	Score              int               `json:"score"`
	CorrectCount       int               `json:"correct_count"`
	TotalQuestions     int               `json:"total_questions"`
	Answers            []AnswerBreakdown `json:"answers"`
	TimeTakenSeconds   int               `json:"time_taken_seconds"`
	TimeTakenFormatted string            `json:"time_taken_formatted"`
	RecordingURL       *string           `json:"recording_url,omitempty"`
	AutoSubmitted      bool              `json:"auto_submitted"`
	CreatedAt          time.Time         `json:"created_at"`
}

// SubmittedAnswer is one answer in a submission.
type SubmittedAnswer struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptionID string    `json:"selected_option_id" binding:"max=64"`
}

// SubmitForm is the multipart submission payload. The recording file is read separately.
type SubmitForm struct {
	CandidateID        string `form:"candidate_id"`
	PositionID         string `form:"position_id"`
	AttemptID          string `form:"attempt_id" binding:"required,uuid"`
	TimeTakenSeconds   int    `form:"timeTakenInSeconds" binding:"min=0"`
	TimeTakenFormatted string `form:"timeTakenFormatted" binding:"max=20"`
	Answers            string `form:"answers" binding:"required"`
	Auto               bool   `form:"auto"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	ResultID       uuid.UUID `json:"result_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
}

// RecordingJob is a spooled session recording waiting to be moved to blob storage.
type RecordingJob struct {
	ResultID    uuid.UUID `json:"result_id"`
	AttemptID   uuid.UUID `json:"attempt_id"`
	Path        string    `json:"path"`
	Ext         string    `json:"ext"`
	ContentType string    `json:"content_type"`
	Attempts    int       `json:"attempts,omitempty"`
}
