package service

import (
	"errors"

	"github.com/proctorly/interview-backend/internal/repository"
)

// Domain errors returned by services. Handlers map them to API error codes.
var (
	ErrNotFound     = repository.ErrNotFound
	ErrConflict     = errors.New("an attempt is already in progress")
	ErrInvalidState = errors.New("attempt is not in progress")
	ErrValidation   = errors.New("validation failed")
	ErrIncomplete   = errors.New("all questions must be answered before submitting")
	ErrForbidden    = errors.New("access denied")
)
