package model

import (
	"time"

	"github.com/google/uuid"
)

// Position is a job posting candidates are assessed for.
type Position struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Salary          string    `json:"salary"`
	Experience      string    `json:"experience"`
	Vacancies       int       `json:"vacancies"`
	Shift           string    `json:"shift"`
	JobType         string    `json:"job_type"`
	QuestionCount   int       `json:"question_count"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Duration returns the test length for this position.
func (p *Position) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}

// PositionRequest is the payload for creating or updating a position.
type PositionRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=255"`
	Salary          string `json:"salary" binding:"max=100"`
	Experience      string `json:"experience" binding:"max=100"`
	Vacancies       int    `json:"vacancies" binding:"min=0,max=10000"`
	Shift           string `json:"shift" binding:"max=50"`
	JobType         string `json:"job_type" binding:"max=50"`
	QuestionCount   int    `json:"question_count" binding:"min=0,max=200"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}
