// Package auth implements credential hashing, access-token signing and
// verification, and the request guard that turns a bearer token into an
// authenticated Principal.
//
// TOKEN FORMAT:
// Access tokens are HS256 JWTs carrying {sub, name, email, iat, exp, aud, iss}.
// A token is accepted only when all of the following hold:
//   - the signature verifies with the configured secret
//   - alg is HS256 (alg=none and asymmetric algs are rejected)
//   - aud and iss equal the configured values
//   - exp is present and in the future
//   - sub is non-empty
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/contact-book/internal/model"
)

// ErrInvalidToken is returned for every verification failure. The wrapped
// cause is for logs only.
var ErrInvalidToken = errors.New("auth: invalid token")

const signingAlg = "HS256"

// Claims is the access-token payload. aud is serialized as a single string
// rather than the array form jwt.RegisteredClaims would produce.
type Claims struct {
	Subject   string           `json:"sub"`
	Name      string           `json:"name,omitempty"`
	Email     string           `json:"email,omitempty"`
	Audience  string           `json:"aud,omitempty"`
	Issuer    string           `json:"iss,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

var _ jwt.Claims = (*Claims)(nil)

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *Claims) GetSubject() (string, error)                  { return c.Subject, nil }

func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// SignOptions binds a token to its issuer context. Now defaults to time.Now.
type SignOptions struct {
	Secret    []byte
	Audience  string
	Issuer    string
	ExpiresIn time.Duration
	Now       func() time.Time
}

// VerifyOptions carries the values a token must have been signed with.
type VerifyOptions struct {
	Secret   []byte
	Audience string
	Issuer   string
	Now      func() time.Time
}

// Sign stamps iat/exp, aud and iss onto claims and returns the compact JWT.
// Caller-supplied aud/iss/iat/exp values are overwritten.
func Sign(claims Claims, opts SignOptions) (string, error) {
	if len(opts.Secret) == 0 {
		return "", errors.New("auth: signing secret is empty")
	}
	if opts.ExpiresIn <= 0 {
		return "", errors.New("auth: token lifetime must be positive")
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	issued := now()
	claims.Audience = opts.Audience
	claims.Issuer = opts.Issuer
	claims.IssuedAt = jwt.NewNumericDate(issued)
	claims.ExpiresAt = jwt.NewNumericDate(issued.Add(opts.ExpiresIn))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(opts.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token. Every failure wraps ErrInvalidToken.
func Verify(tokenStr string, opts VerifyOptions) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	if len(opts.Secret) == 0 {
		return nil, fmt.Errorf("%w: verification secret is empty", ErrInvalidToken)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithAudience(opts.Audience),
		jwt.WithIssuer(opts.Issuer),
		jwt.WithExpirationRequired(),
	}
	if opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Now))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return opts.Secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return &claims, nil
}

// TokenConfig is the binding shared by issuance and verification.
type TokenConfig struct {
	Secret   string
	Audience string
	Issuer   string
	TTL      time.Duration
}

// TokenService signs and verifies access tokens for one TokenConfig.
type TokenService struct {
	secret   []byte
	audience string
	issuer   string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenService validates cfg and returns a ready TokenService.
// Generate a secret with: openssl rand -hex 32
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if cfg.Audience == "" || cfg.Issuer == "" {
		return nil, errors.New("auth: JWT audience and issuer are required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("auth: JWT lifetime must be positive")
	}
	return &TokenService{
		secret:   []byte(cfg.Secret),
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
		ttl:      cfg.TTL,
		now:      time.Now,
	}, nil
}

// Generate issues a token whose subject is the user's id.
func (s *TokenService) Generate(user *model.User) (string, error) {
	return Sign(Claims{
		Subject: user.ID,
		Name:    user.Name,
		Email:   user.Email,
	}, SignOptions{
		Secret:    s.secret,
		Audience:  s.audience,
		Issuer:    s.issuer,
		ExpiresIn: s.ttl,
		Now:       s.now,
	})
}

// Validate verifies a token against this service's binding.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	return Verify(tokenStr, VerifyOptions{
		Secret:   s.secret,
		Audience: s.audience,
		Issuer:   s.issuer,
		Now:      s.now,
	})
}

// TTL is the lifetime stamped on generated tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
