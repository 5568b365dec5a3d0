package services

import (
	"context"
	"time"

	"github.com/oklib/courseflow/internal/app/models"
	"github.com/oklib/courseflow/internal/app/repositories"
	"github.com/oklib/courseflow/internal/pkg/apperrors"
	"github.com/oklib/courseflow/internal/pkg/auth"
	"github.com/oklib/courseflow/internal/pkg/logger"
)

// AuthService handles authentication.
type AuthService struct {
	users *repositories.UserRepository
	jwt   *auth.JWTService
}

// NewAuthService creates a new auth service.
func NewAuthService(users *repositories.UserRepository, jwt *auth.JWTService) *AuthService {
	return &AuthService{
		users: users,
		jwt:   jwt,
	}
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	if user.Password == "" || !auth.CheckPassword(user.Password, password) {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		logger.Warn().Err(err).Str("username", username).Msg("Failed to stamp last login")
	}

	return token, user, nil
}

// ValidateToken verifies an access token and returns its claims.
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	return s.jwt.ValidateToken(token)
}
