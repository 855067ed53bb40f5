package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	repo "github.com/oksasatya/waveai-auth/internal/domain/repository"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
)

// TokenIssuer is the stateless access token contract implemented by
// helpers.TokenIssuer.
type TokenIssuer interface {
	Issue(email, userID, role string, lifetime time.Duration) (string, time.Time, error)
	Verify(token string) (*helpers.AccessClaims, error)
	Lifetime() time.Duration
}

// Source records which credential path identified the user.
type Source string

const (
	SourceToken   Source = "token"
	SourceSession Source = "session"
)

// Resolver turns a bearer credential into the acting user. A credential may
// be either a signed access token or an opaque session token, so both paths
// are tried in order: token first, then session.
type Resolver struct {
	Tokens   TokenIssuer
	Users    repo.UserRepository
	Sessions *SessionManager
	Logger   *logrus.Logger
}

func NewResolver(tokens TokenIssuer, users repo.UserRepository, sessions *SessionManager, logger *logrus.Logger) *Resolver {
	return &Resolver{Tokens: tokens, Users: users, Sessions: sessions, Logger: logger}
}

// Resolve returns ErrUnauthorized for a missing or invalid credential,
// ErrForbidden when the credential is valid but the user is inactive and
// ErrUpstream when the store could not answer.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*entity.User, Source, error) {
	if credential == "" {
		return nil, "", ErrInvalidCredentials
	}
	inactive := false

	if claims, err := r.Tokens.Verify(credential); err == nil {
		u, err := r.Users.FindByID(ctx, claims.UserID)
		if err != nil {
			return nil, "", upstream("lookup token user", err)
		}
		if u != nil {
			if u.IsActive {
				return u, SourceToken, nil
			}
			inactive = true
		}
	} else if r.Logger != nil && !errors.Is(err, helpers.ErrTokenInvalid) {
		r.Logger.WithError(err).Debug("access token rejected")
	}

	u, err := r.Sessions.Resolve(ctx, credential)
	if err != nil {
		return nil, "", err
	}
	if u != nil {
		if u.IsActive {
			return u, SourceSession, nil
		}
		inactive = true
	}

	if inactive {
		return nil, "", ErrInactiveUser
	}
	return nil, "", ErrInvalidCredentials
}
