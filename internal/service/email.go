package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/mailer"
	"github.com/sakif/contact-book/internal/repository"
)

// EmailService sends messages to the caller's own contacts.
type EmailService struct {
	contacts repository.ContactRepository
	mailer   mailer.Mailer
	logger   *slog.Logger
}

func NewEmailService(contacts repository.ContactRepository, m mailer.Mailer, logger *slog.Logger) *EmailService {
	return &EmailService{contacts: contacts, mailer: m, logger: logger}
}

type SendEmailInput struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Send delivers a message to one of ownerID's contacts. An address that
// is not among the owner's contacts is NotFound, whoever else holds it.
func (s *EmailService) Send(ctx context.Context, ownerID string, in SendEmailInput) error {
	to := strings.TrimSpace(in.To)
	subject := strings.TrimSpace(in.Subject)

	if err := validateEmail("to", to); err != nil {
		return err
	}
	if err := validateLength("subject", subject, 1, MaxSubjectLength); err != nil {
		return err
	}
	if strings.TrimSpace(in.Message) == "" {
		return apperror.ValidationFailed("message", "message is required")
	}

	if _, err := s.contacts.GetByEmail(ctx, ownerID, to); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage("recipient not found")
		}
		return fmt.Errorf("service/email: looking up recipient: %w", err)
	}

	if err := s.mailer.Send(ctx, mailer.Message{To: to, Subject: subject, Body: in.Message}); err != nil {
		s.logger.Error("email delivery failed",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/email: sending: %w", err)
	}
	return nil
}
