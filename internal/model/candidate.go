package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is a person invited to take a position's assessment.
type Candidate struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	PositionID     uuid.UUID `json:"position_id"`
	ResumeURL      *string   `json:"resume_url,omitempty"`
	VideoURL       *string   `json:"video_url,omitempty"`
	AccessCodeHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateCandidateRequest is the payload for registering a candidate.
type CreateCandidateRequest struct {
	Name       string    `json:"name" binding:"required,min=2,max=100"`
	Email      string    `json:"email" binding:"required,email,max=255"`
	Phone      string    `json:"phone" binding:"omitempty,max=30"`
	PositionID uuid.UUID `json:"position_id" binding:"required"`
	ResumeURL  *string   `json:"resume_url" binding:"omitempty,max=2048"`
	VideoURL   *string   `json:"video_url" binding:"omitempty,max=2048"`
}

// CreateCandidateResponse carries the one-time access code shown to HR.
type CreateCandidateResponse struct {
	Candidate  Candidate `json:"candidate"`
	AccessCode string    `json:"access_code"`
}

// CandidateLoginRequest is the payload for candidate authentication.
type CandidateLoginRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	AccessCode string `json:"access_code" binding:"required,min=6,max=64"`
}

// CandidateLoginResponse is returned after successful candidate login.
type CandidateLoginResponse struct {
	Token     string    `json:"token"`
	Candidate Candidate `json:"candidate"`
}
