package model

import (
	"time"

	"github.com/google/uuid"
)

// Option is a single choice of a multiple-choice question.
type Option struct {
	ID       string `json:"id" binding:"required,max=64"`
	Text     string `json:"text" binding:"max=1000"`
	ImageURL string `json:"image_url,omitempty" binding:"omitempty,max=2048"`
}

// Question is a single-select question in a position's bank.
type Question struct {
	ID            uuid.UUID `json:"id"`
	PositionID    uuid.UUID `json:"position_id"`
	QuestionText  string    `json:"question_text"`
	ImageURL      *string   `json:"image_url,omitempty"`
	Options       []Option  `json:"options"`
	CorrectOption string    `json:"correct_option"`
	CreatedAt     time.Time `json:"created_at"`
}

// FindOption returns the option with the given id.
func (q *Question) FindOption(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// AddQuestionRequest is the payload for adding a question to a position's bank.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=4000"`
	ImageURL      *string  `json:"image_url" binding:"omitempty,max=2048"`
	Options       []Option `json:"options" binding:"required,min=2,max=10,dive"`
	CorrectOption string   `json:"correct_option" binding:"required,max=64"`
}

// QuestionForCandidate is a question without its correct answer.
type QuestionForCandidate struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	ImageURL     *string   `json:"image_url,omitempty"`
	Options      []Option  `json:"options"`
}

// Paper is the candidate-facing question set of one attempt, in attempt order.
type Paper struct {
	AttemptID       uuid.UUID              `json:"attempt_id"`
	PositionID      uuid.UUID              `json:"position_id"`
	DurationMinutes int                    `json:"duration_minutes"`
	ExpiresAt       time.Time              `json:"expires_at"`
	Questions       []QuestionForCandidate `json:"questions"`
}
