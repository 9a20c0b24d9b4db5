// Package service holds the business rules. Handlers call services with
// plain values; services talk to storage only through the repository
// interfaces and return apperror values for every expected failure.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/auth"
	"github.com/sakif/contact-book/internal/repository"
)

// msgInvalidCredentials is returned for both an unknown email and a wrong
// password so callers cannot probe which accounts exist.
const msgInvalidCredentials = "invalid credentials"

// AuthService verifies credentials and issues access tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the login response. ExpiresIn is in seconds.
type LoginResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if creds.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("login failed",
				slog.String("reason", "wrong password"),
				slog.String("userID", user.ID),
			)
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &LoginResult{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		AccessToken: token,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}
