package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/contact-book/internal/auth"
	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/repository"
)

const msgForbiddenUser = "not permitted to modify this user"

// UserService manages accounts. Only the account holder may change or
// delete an account.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{users: users, passwords: passwords, logger: logger}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Register creates an account. A duplicate email is apperror.ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	if err := validateLength("name", name, MinUserNameLength, MaxUserNameLength); err != nil {
		return nil, err
	}
	if err := validateEmail("email", email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", id, err)
	}
	return user, nil
}

// Update applies a partial update. The target must exist (NotFound) and
// belong to the caller (Forbidden), checked in that order.
func (s *UserService) Update(ctx context.Context, p *auth.Principal, id string, in UpdateUserInput) (*model.User, error) {
	user, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateLength("name", name, MinUserNameLength, MaxUserNameLength); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validateEmail("email", email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}
	return user, nil
}

// Delete removes the caller's own account and all of its contacts and
// returns the removed record.
func (s *UserService) Delete(ctx context.Context, p *auth.Principal, id string) (*model.User, error) {
	user, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("service/user: deleting user %s: %w", id, err)
	}

	s.logger.Info("user deleted", slog.String("userID", id))
	return user, nil
}

func (s *UserService) loadOwned(ctx context.Context, p *auth.Principal, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", id, err)
	}
	if err := auth.RequireOwner(p, user.ID, msgForbiddenUser); err != nil {
		s.logger.Warn("user modification denied",
			slog.String("target", id),
			slog.String("caller", principalID(p)),
		)
		return nil, err
	}
	return user, nil
}

func principalID(p *auth.Principal) string {
	if p == nil || p.Claims == nil {
		return ""
	}
	return p.Claims.Subject
}
