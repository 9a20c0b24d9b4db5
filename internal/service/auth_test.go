package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/auth"
	"github.com/sakif/contact-book/internal/model"
)

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   "test-secret-at-least-16-chars!!",
		Audience: "contact-book-clients",
		Issuer:   "contact-book",
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	return ts
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *auth.TokenService) {
	t.Helper()
	repo := newFakeUserRepo()
	tokens := newTestTokens(t)
	ps := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := ps.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &model.User{
		Name: "Ada Lovelace", Email: "ada@example.com", PasswordHash: hash,
	}))

	return NewAuthService(repo, tokens, ps, testLogger()), repo, tokens
}

// =========================================================================
// Login
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)

	res, err := svc.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	assert.Equal(t, "user-1", res.ID)
	assert.Equal(t, "Ada Lovelace", res.Name)
	assert.Equal(t, "ada@example.com", res.Email)
	assert.Equal(t, int64(3600), res.ExpiresIn)

	claims, err := tokens.Validate(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.Name)
}

func TestLogin_UnknownEmailAndWrongPasswordLookIdentical(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, errUnknown := svc.Login(context.Background(), Credentials{Email: "nobody@example.com", Password: "s3cret-pass"})
	_, errWrong := svc.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "wrong-pass"})

	require.ErrorIs(t, errUnknown, apperror.ErrUnauthorized)
	require.ErrorIs(t, errWrong, apperror.ErrUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), Credentials{Password: "x"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Login(context.Background(), Credentials{Email: "ada@example.com"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestLogin_StorageFailureIsInternal(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	repo.err = errors.New("database is locked")

	_, err := svc.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "s3cret-pass"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestLogin_CorruptHashIsInternal(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	repo.users["user-1"].PasswordHash = "not-bcrypt"

	_, err := svc.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "s3cret-pass"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized)
}
