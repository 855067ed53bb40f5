package helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenType = "access"

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenIssuer mints and verifies stateless HMAC-signed access tokens.
type TokenIssuer struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
	now      func() time.Time
}

// AccessClaims are the identity claims embedded in an access token. The
// subject carries the user's email.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// NewTokenIssuer builds an issuer for one of HS256, HS384 or HS512.
func NewTokenIssuer(secret, algorithm string, lifetime time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), method: method, lifetime: lifetime, now: time.Now}, nil
}

// SetClock overrides the issuer's clock. Intended for tests.
func (t *TokenIssuer) SetClock(now func() time.Time) { t.now = now }

// Lifetime is the default token lifetime.
func (t *TokenIssuer) Lifetime() time.Duration { return t.lifetime }

// Issue signs a token for the given identity. A zero lifetime uses the
// configured default.
func (t *TokenIssuer) Issue(email, userID, role string, lifetime time.Duration) (string, time.Time, error) {
	if lifetime <= 0 {
		lifetime = t.lifetime
	}
	now := t.now()
	exp := now.Add(lifetime)
	claims := &AccessClaims{
		UserID: userID,
		Role:   role,
		Type:   accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	s, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return s, exp, nil
}

// Verify checks signature, algorithm, expiry and token type. It never panics
// on malformed input and reports either ErrTokenExpired or ErrTokenInvalid.
func (t *TokenIssuer) Verify(tokenStr string) (*AccessClaims, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}
	claims := &AccessClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tkn.Valid || claims.Type != accessTokenType || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
