package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/middleware"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/rs/zerolog"
)

type authenticator interface {
	AdminLogin(ctx context.Context, email, password string) (*model.AdminLoginResponse, error)
	CandidateLogin(ctx context.Context, email, accessCode string) (*model.CandidateLoginResponse, error)
	ResetCandidateSession(ctx context.Context, candidateID uuid.UUID) error
}

type adminGetter interface {
	GetByID(ctx context.Context, id int) (*model.Admin, error)
}

type candidateGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Candidate, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth       authenticator
	admins     adminGetter
	candidates candidateGetter
	log        zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth authenticator, admins adminGetter, candidates candidateGetter, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		admins:     admins,
		candidates: candidates,
		log:        log.With().Str("component", "auth_handler").Logger(),
	}
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password, returns JWT with permissions.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.auth.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// CandidateLogin godoc
// POST /api/v1/auth/candidate/login
// Validates email + access code, rejects a second concurrent session, returns JWT.
func (h *AuthHandler) CandidateLogin(c *gin.Context) {
	var req model.CandidateLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.auth.CandidateLogin(c.Request.Context(), req.Email, req.AccessCode)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetCandidateProfile godoc
// GET /api/v1/auth/candidate/me
// Returns the profile of the currently authenticated candidate.
func (h *AuthHandler) GetCandidateProfile(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	cand, err := h.candidates.Get(c.Request.Context(), claims.CandidateID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": cand})
}

// CandidateLogout godoc
// POST /api/v1/auth/candidate/logout
// Ends the candidate's session so they can log in again from another device.
func (h *AuthHandler) CandidateLogout(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}

	if err := h.auth.ResetCandidateSession(c.Request.Context(), claims.CandidateID); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the profile and permissions of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	admin, err := h.admins.GetByID(c.Request.Context(), claims.AdminID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin":       admin,
		"permissions": admin.Role.Permissions(),
	})
}
