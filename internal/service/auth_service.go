package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active, please contact HR to reset")
)

// TokenType distinguishes candidate vs admin tokens.
type TokenType string

const (
	TokenTypeCandidate TokenType = "candidate"
	TokenTypeAdmin     TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType  `json:"token_type"`
	CandidateID uuid.UUID  `json:"candidate_id,omitempty"` // Candidate only
	PositionID  uuid.UUID  `json:"position_id,omitempty"`  // Candidate only
	AdminID     int        `json:"admin_id,omitempty"`     // Admin only
	Role        model.Role `json:"role,omitempty"`         // Admin only
	Permissions []string   `json:"permissions,omitempty"`  // Admin only
}

// adminFinder looks up admin accounts.
type adminFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// AuthService handles authentication, JWT, and candidate session management.
type AuthService struct {
	cfg        *config.Config
	rdb        *redis.Client
	admins     adminFinder
	candidates CandidateStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, admins adminFinder, candidates CandidateStore) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, admins: admins, candidates: candidates}
}

// HashPassword hashes a password or access code with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext secret against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// AdminLogin authenticates an admin by email and password.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*model.AdminLoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, err
	}

	perms := admin.Role.Permissions()
	token, err := s.GenerateAdminToken(admin.ID, admin.Role, perms)
	if err != nil {
		return nil, err
	}
	return &model.AdminLoginResponse{Token: token, Admin: *admin, Permissions: perms}, nil
}

// CandidateLogin authenticates a candidate by email and access code and opens their single session.
func (s *AuthService) CandidateLogin(ctx context.Context, email, accessCode string) (*model.CandidateLoginResponse, error) {
	cand, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if err := s.CheckPassword(cand.AccessCodeHash, accessCode); err != nil {
		return nil, err
	}

	token, err := s.GenerateCandidateToken(ctx, cand.ID, cand.PositionID)
	if err != nil {
		return nil, err
	}
	return &model.CandidateLoginResponse{Token: token, Candidate: *cand}, nil
}

// GenerateCandidateToken creates a JWT for a candidate and registers the session in Redis.
// Returns an error if a session already exists (new logins are rejected).
func (s *AuthService) GenerateCandidateToken(ctx context.Context, candidateID, positionID uuid.UUID) (string, error) {
	sessionKey := config.CacheKey.CandidateSessionKey(candidateID.String())
	jti := uuid.New().String()

	// SETNX so two simultaneous logins cannot both win.
	ok, err := s.rdb.SetNX(ctx, sessionKey, jti, s.cfg.JWTExpiry).Result()
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return "", ErrSessionAlreadyActive
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   candidateID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeCandidate,
		CandidateID: candidateID,
		PositionID:  positionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.rdb.Del(ctx, sessionKey)
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
func (s *AuthService) GenerateAdminToken(adminID int, role model.Role, permissions []string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(adminID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeAdmin,
		AdminID:     adminID,
		Role:        role,
		Permissions: permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateCandidateSession checks that the token's JTI matches the active session in Redis.
func (s *AuthService) ValidateCandidateSession(ctx context.Context, candidateID uuid.UUID, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.CandidateSessionKey(candidateID.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("no active session")
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return errors.New("session invalidated")
	}
	return nil
}

// ResetCandidateSession removes a candidate's session from Redis, allowing a new login.
func (s *AuthService) ResetCandidateSession(ctx context.Context, candidateID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.CandidateSessionKey(candidateID.String())).Err()
}
