package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/model"
)

// contextKey is unexported so only this package can read or write the
// principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// Guard failure messages. They are deliberately coarse.
const (
	msgMissingToken     = "missing or invalid token"
	msgInvalidToken     = "token validation failed"
	msgUnauthorizedUser = "unauthorized user"
)

// Principal is the authenticated caller: the freshly loaded user record and
// the verified claims it was resolved from.
type Principal struct {
	User   *model.User
	Claims *Claims
}

// UserID is the caller's user id (the token subject).
func (p *Principal) UserID() string {
	return p.User.ID
}

// UserLookup resolves a token subject to a current user record.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenValidator verifies an access token. *TokenService satisfies it.
type TokenValidator interface {
	Validate(tokenStr string) (*Claims, error)
}

// Authenticator turns an Authorization header into a Principal.
type Authenticator struct {
	tokens TokenValidator
	users  UserLookup
	logger *slog.Logger
}

func NewAuthenticator(tokens TokenValidator, users UserLookup, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// Authenticate runs the guard checks in order:
//  1. header must be "Bearer <token>"
//  2. token must verify
//  3. the subject must still exist
//
// Failures of 1-3 are apperror.ErrUnauthorized. A storage failure in step 3
// is returned as-is and surfaces as an internal error.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token, ok := ExtractBearer(header)
	if !ok {
		return nil, apperror.Unauthorized(msgMissingToken)
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		a.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized(msgInvalidToken)
	}

	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			a.logger.Debug("token subject no longer exists", slog.String("sub", claims.Subject))
			return nil, apperror.Unauthorized(msgUnauthorizedUser)
		}
		return nil, fmt.Errorf("auth: resolving token subject: %w", err)
	}

	return &Principal{User: user, Claims: claims}, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive; anything other than exactly two
// space-separated parts is rejected.
func ExtractBearer(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ErrorWriter renders a guard failure. handler.WriteError satisfies it.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth rejects requests that fail Authenticate and stores the
// Principal in the request context for the rest.
func RequireAuth(a *Authenticator, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// ClaimsFromContext returns the verified token claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, false
	}
	return p.Claims, true
}
