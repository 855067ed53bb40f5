package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer("test-secret", "HS256", 24*time.Hour)
	require.NoError(t, err)
	iss.SetClock(func() time.Time { return *now })
	return iss
}

func TestTokenIssuer_RoundTripBeforeExpiry(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	iss := newTestIssuer(t, &now)

	tok, exp, err := iss.Issue("a@x.com", "user-1", "organizer", 0)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), exp)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "organizer", claims.Role)
	assert.Equal(t, "access", claims.Type)
}

func TestTokenIssuer_ExpiredAfterLifetime(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	iss := newTestIssuer(t, &now)

	tok, _, err := iss.Issue("a@x.com", "user-1", "volunteer", time.Hour)
	require.NoError(t, err)

	now = now.Add(time.Hour + time.Second)
	claims, err := iss.Verify(tok)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, &now)

	for _, in := range []string{"", "not-a-token", "a.b.c", "eyJhbGciOiJIUzI1NiJ9..", "opaque-session-token-value"} {
		claims, err := iss.Verify(in)
		assert.Nil(t, claims, in)
		assert.ErrorIs(t, err, ErrTokenInvalid, in)
	}
}

func TestTokenIssuer_RejectsOtherSecretAndAlgorithm(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, &now)

	other, err := NewTokenIssuer("other-secret", "HS256", time.Hour)
	require.NoError(t, err)
	tok, _, err := other.Issue("a@x.com", "user-1", "volunteer", 0)
	require.NoError(t, err)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	hs512, err := NewTokenIssuer("test-secret", "HS512", time.Hour)
	require.NoError(t, err)
	tok, _, err = hs512.Issue("a@x.com", "user-1", "volunteer", 0)
	require.NoError(t, err)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsWrongType(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, &now)

	claims := &AccessClaims{
		UserID: "user-1",
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	_, err := NewTokenIssuer("", "HS256", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenIssuer("s", "RS256", time.Hour)
	assert.Error(t, err)

	iss, err := NewTokenIssuer("s", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, iss.Lifetime())
}
