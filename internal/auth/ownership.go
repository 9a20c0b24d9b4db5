package auth

import "github.com/sakif/contact-book/internal/apperror"

// IsOwner reports whether the principal is the owner identified by ownerID.
func IsOwner(p *Principal, ownerID string) bool {
	return p != nil && p.Claims != nil && ownerID != "" && p.Claims.Subject == ownerID
}

// RequireOwner returns apperror.ErrForbidden unless the principal owns the
// resource. Callers must establish the resource exists first so that a
// missing resource reports NotFound rather than Forbidden.
func RequireOwner(p *Principal, ownerID, message string) error {
	if !IsOwner(p, ownerID) {
		return apperror.Forbidden(message)
	}
	return nil
}
