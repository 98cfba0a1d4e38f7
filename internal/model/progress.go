package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the navigation state of a question inside a progress snapshot.
type QuestionStatus int

const (
	QuestionUnvisited QuestionStatus = 0
	QuestionAnswered  QuestionStatus = 1
	QuestionVisited   QuestionStatus = 2
)

// ProgressQuestion is the per-question state of an in-flight attempt.
type ProgressQuestion struct {
	QuestionID         uuid.UUID      `json:"question_id" binding:"required"`
	Question           string         `json:"question"`
	Options            []Option       `json:"options"`
	SelectedOption     *string        `json:"selected_option"`
	SelectedOptionText *string        `json:"selected_option_text"`
	Status             QuestionStatus `json:"status" binding:"min=0,max=2"`
}

// ProgressSnapshot is what the client sends on every autosave.
type ProgressSnapshot struct {
	CurrentQuestionIndex int                `json:"current_question_index" binding:"min=0"`
	TimeLeft             int                `json:"time_left" binding:"min=0"`
	Questions            []ProgressQuestion `json:"questions" binding:"dive"`
}

// Progress is the stored, resumable state of an in-progress attempt.
type Progress struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	ProgressSnapshot
	SavedAt time.Time `json:"saved_at"`
}

// SelectedAnswers returns the chosen option per question, skipping unanswered ones.
func (p *Progress) SelectedAnswers() []SubmittedAnswer {
	answers := make([]SubmittedAnswer, 0, len(p.Questions))
	for _, q := range p.Questions {
		if q.SelectedOption == nil || *q.SelectedOption == "" {
			continue
		}
		answers = append(answers, SubmittedAnswer{QuestionID: q.QuestionID, SelectedOptionID: *q.SelectedOption})
	}
	return answers
}

// SaveProgressRequest is the autosave payload.
type SaveProgressRequest struct {
	CandidateID   uuid.UUID        `json:"candidate_id"`
	PositionID    uuid.UUID        `json:"position_id"`
	AttemptID     uuid.UUID        `json:"attempt_id" binding:"required"`
	AttemptNumber int              `json:"attempt_number"`
	Progress      ProgressSnapshot `json:"progress"`
}

// ResetProgressRequest is the payload for discarding an attempt's progress.
type ResetProgressRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" binding:"required"`
}
