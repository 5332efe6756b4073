package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/observability/metrics"
	"github.com/cashflowpro/cashflowpro/internal/security/auth"
)

const bcryptCost = 12

// AuthService handles account registration and login.
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo domain.UserRepository, tokens *auth.TokenManager, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// SessionResult is returned by both Register and Login.
type SessionResult struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Plan      string `json:"plan"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"` // seconds
	TokenType string `json:"tokenType"`
}

// Register creates a new user account on the free tier.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*SessionResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.NewValidationError("a valid email address is required")
	}
	if len(password) < 6 {
		return nil, domain.NewValidationError("password must be at least 6 characters")
	}
	if name != "" && len(name) < 2 {
		return nil, domain.NewValidationError("name must be at least 2 characters")
	}

	// A duplicate email gets a generic client error so the endpoint
	// does not leak who has an account.
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.NewValidationError("failed to register user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("hash password: %w", domain.ErrPersistence)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Plan:         domain.PlanFree,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("create user: %w", domain.ErrPersistence)
	}

	return s.sessionFor(user)
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*SessionResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		metrics.ObserveLogin("failure")
		return nil, domain.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.ObserveLogin("failure")
		return nil, domain.ErrUnauthenticated
	}

	result, err := s.sessionFor(user)
	if err != nil {
		metrics.ObserveLogin("failure")
		return nil, err
	}
	metrics.ObserveLogin("success")
	return result, nil
}

// Me returns the account behind a validated token.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers returns every account. Callers must gate this on the
// manage_users permission.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *AuthService) sessionFor(user *domain.User) (*SessionResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role), string(user.Plan), s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to create session")
	}
	return &SessionResult{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		Plan:      string(user.Plan),
		Token:     token,
		ExpiresIn: int(s.tokenTTL.Seconds()),
		TokenType: "Bearer",
	}, nil
}
