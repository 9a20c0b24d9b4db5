package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/pagination"
	"github.com/sakif/contact-book/internal/repository"
)

// ContactService manages a user's contacts. Every method takes the owner
// id from the authenticated principal, never from request input.
type ContactService struct {
	repo   repository.ContactRepository
	logger *slog.Logger
}

func NewContactService(repo repository.ContactRepository, logger *slog.Logger) *ContactService {
	return &ContactService{repo: repo, logger: logger}
}

type ContactInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ContactPatch is a partial update; nil fields are left unchanged.
type ContactPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (s *ContactService) Create(ctx context.Context, ownerID string, in ContactInput) (*model.Contact, error) {
	c := &model.Contact{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		OwnerID: ownerID,
	}
	if err := validateContact(c); err != nil {
		return nil, err
	}

	// Duplicate emails are caught by the (owner_id, email) constraint.
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("service/contact: creating contact: %w", err)
	}

	s.logger.Debug("contact created", slog.String("contactID", c.ID), slog.String("ownerID", ownerID))
	return c, nil
}

func (s *ContactService) Get(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("service/contact: fetching contact %s: %w", id, err)
	}
	return c, nil
}

func (s *ContactService) Update(ctx context.Context, ownerID, id string, patch ContactPatch) (*model.Contact, error) {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("service/contact: fetching contact %s: %w", id, err)
	}

	if patch.Name != nil {
		c.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		c.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Phone != nil {
		c.Phone = strings.TrimSpace(*patch.Phone)
	}
	if err := validateContact(c); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("service/contact: updating contact %s: %w", id, err)
	}
	return c, nil
}

// Delete removes the contact and returns it as it was before removal.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("service/contact: fetching contact %s: %w", id, err)
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return nil, fmt.Errorf("service/contact: deleting contact %s: %w", id, err)
	}
	return c, nil
}

// List returns one page of the owner's contacts. q is normalized here so
// callers may pass raw values.
func (s *ContactService) List(ctx context.Context, ownerID string, q pagination.Query) (*pagination.Result[model.Contact], error) {
	q = q.Normalize()

	contacts, total, err := s.repo.List(ctx, ownerID, q)
	if err != nil {
		return nil, fmt.Errorf("service/contact: listing contacts: %w", err)
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}

	return &pagination.Result[model.Contact]{
		Data: contacts,
		Meta: pagination.NewMeta(q, total),
	}, nil
}

func validateContact(c *model.Contact) error {
	if err := validateLength("name", c.Name, MinContactNameLength, MaxContactNameLength); err != nil {
		return err
	}
	if err := validateEmail("email", c.Email); err != nil {
		return err
	}
	return validatePhone(c.Phone)
}
