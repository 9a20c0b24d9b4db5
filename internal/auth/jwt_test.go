package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/contact-book/internal/model"
)

const (
	testSecret   = "test-secret-at-least-16-chars!!"
	testAudience = "contact-book-clients"
	testIssuer   = "contact-book"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(TokenConfig{
		Secret:   testSecret,
		Audience: testAudience,
		Issuer:   testIssuer,
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	return ts
}

func signOpts() SignOptions {
	return SignOptions{
		Secret:    []byte(testSecret),
		Audience:  testAudience,
		Issuer:    testIssuer,
		ExpiresIn: time.Hour,
	}
}

func verifyOpts() VerifyOptions {
	return VerifyOptions{
		Secret:   []byte(testSecret),
		Audience: testAudience,
		Issuer:   testIssuer,
	}
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: "short", Audience: "a", Issuer: "i", TTL: time.Hour})
	assert.Error(t, err)
}

func TestNewTokenService_RequiresAudienceAndIssuer(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: testSecret, Issuer: "i", TTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: testSecret, Audience: "a", TTL: time.Hour})
	assert.Error(t, err)
}

func TestNewTokenService_NonPositiveTTL(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: testSecret, Audience: "a", Issuer: "i"})
	assert.Error(t, err)
}

// =========================================================================
// SIGN / VERIFY
// =========================================================================

func TestSignVerify_RoundTrip(t *testing.T) {
	token, err := Sign(Claims{Subject: "user-1", Name: "Ada", Email: "ada@example.com"}, signOpts())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := Verify(token, verifyOpts())
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, testAudience, claims.Audience)
	assert.Equal(t, testIssuer, claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestSign_AudienceIsAString(t *testing.T) {
	token, err := Sign(Claims{Subject: "user-1"}, signOpts())
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	assert.Equal(t, testAudience, raw["aud"])
}

func TestSign_OverridesCallerBinding(t *testing.T) {
	token, err := Sign(Claims{Subject: "user-1", Audience: "evil", Issuer: "evil"}, signOpts())
	require.NoError(t, err)

	claims, err := Verify(token, verifyOpts())
	require.NoError(t, err)
	assert.Equal(t, testAudience, claims.Audience)
}

func TestSign_RejectsEmptySecretAndTTL(t *testing.T) {
	opts := signOpts()
	opts.Secret = nil
	_, err := Sign(Claims{Subject: "u"}, opts)
	assert.Error(t, err)

	opts = signOpts()
	opts.ExpiresIn = 0
	_, err = Sign(Claims{Subject: "u"}, opts)
	assert.Error(t, err)
}

func TestVerify_Rejections(t *testing.T) {
	valid, err := Sign(Claims{Subject: "user-1"}, signOpts())
	require.NoError(t, err)

	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredOpts := signOpts()
	expiredOpts.Now = past
	expired, err := Sign(Claims{Subject: "user-1"}, expiredOpts)
	require.NoError(t, err)

	noSub, err := Sign(Claims{}, signOpts())
	require.NoError(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		Subject:   "user-1",
		Audience:  testAudience,
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	wrongAlg, err := hs512.SignedString([]byte(testSecret))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Subject:   "user-1",
		Audience:  testAudience,
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	algNone, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Subject:  "user-1",
		Audience: testAudience,
		Issuer:   testIssuer,
	})
	missingExp, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tampered := valid[:len(valid)-2] + "xx"

	tests := []struct {
		name  string
		token string
		opts  VerifyOptions
	}{
		{"empty token", "", verifyOpts()},
		{"garbage", "not.a.jwt", verifyOpts()},
		{"tampered signature", tampered, verifyOpts()},
		{"wrong secret", valid, VerifyOptions{Secret: []byte("another-secret-16chars"), Audience: testAudience, Issuer: testIssuer}},
		{"wrong audience", valid, VerifyOptions{Secret: []byte(testSecret), Audience: "other", Issuer: testIssuer}},
		{"wrong issuer", valid, VerifyOptions{Secret: []byte(testSecret), Audience: testAudience, Issuer: "other"}},
		{"expired", expired, verifyOpts()},
		{"missing exp", missingExp, verifyOpts()},
		{"empty subject", noSub, verifyOpts()},
		{"HS512", wrongAlg, verifyOpts()},
		{"alg none", algNone, verifyOpts()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.token, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken), "want ErrInvalidToken, got %v", err)
		})
	}
}

// =========================================================================
// TOKEN SERVICE
// =========================================================================

func TestTokenService_GenerateValidate(t *testing.T) {
	ts := newTestTokenService(t)
	user := &model.User{ID: "user-42", Name: "Grace", Email: "grace@example.com"}

	token, err := ts.Generate(user)
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "Grace", claims.Name)
	assert.Equal(t, time.Hour, ts.TTL())
}

func TestTokenService_ValidateIsRepeatable(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Generate(&model.User{ID: "user-7", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	first, err := ts.Validate(token)
	require.NoError(t, err)
	second, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTokenService_ExpiresWithClock(t *testing.T) {
	ts := newTestTokenService(t)
	start := time.Now()
	ts.now = func() time.Time { return start }

	token, err := ts.Generate(&model.User{ID: "user-1"})
	require.NoError(t, err)

	ts.now = func() time.Time { return start.Add(time.Hour + time.Minute) }
	_, err = ts.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	a, err := ts.Generate(&model.User{ID: "user-aaa"})
	require.NoError(t, err)
	b, err := ts.Generate(&model.User{ID: "user-bbb"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
