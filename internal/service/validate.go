package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/auth"
)

// Field limits.
const (
	MinUserNameLength    = 3
	MaxUserNameLength    = 155
	MinContactNameLength = 3
	MaxContactNameLength = 255
	MaxEmailLength       = 255
	MinPasswordLength    = 6
	MinPhoneLength       = 10
	MaxPhoneLength       = 32
	MaxSubjectLength     = 255
)

func validateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s is required", field))
	}
	if n < min {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	if max > 0 && n > max {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or fewer", field, max))
	}
	return nil
}

// validateEmail accepts a bare address only; display names are rejected.
func validateEmail(field, value string) error {
	if value == "" {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s is required", field))
	}
	if len(value) > MaxEmailLength {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or fewer", field, MaxEmailLength))
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@"):], ".") {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be a valid email address", field))
	}
	return nil
}

func validatePassword(value string) error {
	if len(value) < MinPasswordLength {
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(value) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}

func validatePhone(value string) error {
	return validateLength("phone", value, MinPhoneLength, MaxPhoneLength)
}
