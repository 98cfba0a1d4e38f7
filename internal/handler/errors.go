package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/middleware"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/rs/zerolog"
)

// respondError maps a service error to the API envelope. Unknown errors are logged and hidden.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrAttemptConflict)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidAttemptState)
	case errors.Is(err, service.ErrIncomplete):
		response.Fail(c, http.StatusBadRequest, response.ErrIncompleteSubmission)
	case errors.Is(err, service.ErrValidation):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, validationDetail(err))
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, repository.ErrDuplicate):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrPositionInUse), errors.Is(err, repository.ErrReferenced):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	case errors.Is(err, service.ErrSessionAlreadyActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
	default:
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(response.ContextKeyRequestID)).
			Msg("request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// validationDetail strips the sentinel prefix so clients see only the specific reason.
func validationDetail(err error) map[string]string {
	msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	return map[string]string{"detail": msg}
}

// parseUUIDParam reads a UUID path parameter, writing INVALID_ID on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// candidateClaims returns the caller's claims when they are a candidate.
func candidateClaims(c *gin.Context) (*service.Claims, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	if claims.TokenType != service.TokenTypeCandidate {
		response.Fail(c, http.StatusForbidden, response.ErrCandidateAccessOnly)
		return nil, false
	}
	return claims, true
}

// requireSelf rejects requests that name another candidate than the caller.
func requireSelf(c *gin.Context, claims *service.Claims, candidateID uuid.UUID) bool {
	if candidateID != uuid.Nil && candidateID != claims.CandidateID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return false
	}
	return true
}

// adminID returns the calling admin's id for audit logging, or 0.
func adminID(c *gin.Context) int {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.AdminID
	}
	return 0
}
