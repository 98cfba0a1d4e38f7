package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates test attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusAbandoned  AttemptStatus = "abandoned"
)

// Attempt is one candidate's timed run through a position's test.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	CandidateID   uuid.UUID     `json:"candidate_id"`
	PositionID    uuid.UUID     `json:"position_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	IsLatest      bool          `json:"is_latest"`
	QuestionIDs   []uuid.UUID   `json:"question_ids"`
	StartedAt     time.Time     `json:"started_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	ResultID      *uuid.UUID    `json:"result_id,omitempty"`
	Result        *Result       `json:"result,omitempty"`
}

// InProgress reports whether the attempt still accepts progress and submission.
func (a *Attempt) InProgress() bool {
	return a.Status == AttemptStatusInProgress
}

// HasQuestion reports whether qid belongs to the attempt's drawn question set.
func (a *Attempt) HasQuestion(qid uuid.UUID) bool {
	for _, id := range a.QuestionIDs {
		if id == qid {
			return true
		}
	}
	return false
}

// Remaining returns the time left before the attempt's deadline, floored at zero.
func (a *Attempt) Remaining(now time.Time) time.Duration {
	d := a.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// CreateAttemptRequest is the payload for creating an attempt.
type CreateAttemptRequest struct {
	CandidateID uuid.UUID `json:"candidate_id" binding:"required"`
	PositionID  uuid.UUID `json:"position_id" binding:"required"`
}

// StartAttemptRequest starts a new attempt or resumes the active one.
type StartAttemptRequest struct {
	PositionID uuid.UUID `json:"position_id" binding:"required"`
}

// AttemptFilter narrows the admin attempt listing.
type AttemptFilter struct {
	Status      *AttemptStatus
	CandidateID *uuid.UUID
	PositionID  *uuid.UUID
	Page        int
	PerPage     int
}

// AttemptSummary is a row of the admin attempt listing.
type AttemptSummary struct {
	Attempt
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	PositionName   string `json:"position_name"`
	Score          *int   `json:"score,omitempty"`
}

// AttemptDetail is the admin view of a single attempt.
type AttemptDetail struct {
	AttemptSummary
	ProctorEventCounts map[ProctorEventType]int64 `json:"proctor_event_counts"`
}
