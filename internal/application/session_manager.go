package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	repo "github.com/oksasatya/waveai-auth/internal/domain/repository"
)

// sessionTokenBytes is the raw entropy of a session token (512 bits).
const sessionTokenBytes = 64

// SessionManager mints opaque session tokens and resolves them back to users.
type SessionManager struct {
	Sessions repo.SessionRepository
	Users    repo.UserRepository
	Lifetime time.Duration
	Logger   *logrus.Logger

	now  func() time.Time
	rand io.Reader
}

func NewSessionManager(sessions repo.SessionRepository, users repo.UserRepository, lifetime time.Duration, logger *logrus.Logger) *SessionManager {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &SessionManager{
		Sessions: sessions,
		Users:    users,
		Lifetime: lifetime,
		Logger:   logger,
		now:      time.Now,
		rand:     rand.Reader,
	}
}

// SetClock overrides the manager's clock. Intended for tests.
func (m *SessionManager) SetClock(now func() time.Time) { m.now = now }

func (m *SessionManager) newToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := io.ReadFull(m.rand, b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue creates a session for userID and returns its token and expiry. The
// session id is never returned to callers.
func (m *SessionManager) Issue(ctx context.Context, userID string, meta entity.ClientMeta) (string, time.Time, error) {
	token, err := m.newToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := m.now().UTC()
	s := &entity.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(m.Lifetime),
		IsActive:  true,
		CreatedAt: now,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	}
	if err := m.Sessions.Create(ctx, s); err != nil {
		return "", time.Time{}, upstream("create session", err)
	}
	return token, s.ExpiresAt, nil
}

// Resolve returns the user owning token, or nil when the token is unknown,
// revoked or expired. A session found past its expiresAt is revoked on the spot.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*entity.User, error) {
	s, err := m.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, upstream("lookup session", err)
	}
	if s == nil {
		return nil, nil
	}
	if s.ExpiredAt(m.now()) {
		if err := m.Sessions.Revoke(ctx, s); err != nil && m.Logger != nil {
			m.Logger.WithError(err).WithField("session_id", s.ID).Warn("revoke expired session failed")
		}
		return nil, nil
	}
	u, err := m.Users.FindByID(ctx, s.UserID)
	if err != nil {
		return nil, upstream("lookup session owner", err)
	}
	return u, nil
}

// revoke deactivates the session behind token and returns it, or nil if
// there was no active session.
func (m *SessionManager) revoke(ctx context.Context, token string) (*entity.Session, error) {
	if token == "" {
		return nil, nil
	}
	s, err := m.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, upstream("lookup session", err)
	}
	if s == nil {
		return nil, nil
	}
	if err := m.Sessions.Revoke(ctx, s); err != nil {
		return nil, upstream("revoke session", err)
	}
	return s, nil
}

// RevokeByToken revokes the session and reports whether one was active.
// Revoking an unknown or already revoked token is a no-op returning false.
func (m *SessionManager) RevokeByToken(ctx context.Context, token string) (bool, error) {
	s, err := m.revoke(ctx, token)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

func (m *SessionManager) ListForUser(ctx context.Context, userID string) ([]*entity.Session, error) {
	out, err := m.Sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, upstream("list sessions", err)
	}
	return out, nil
}

func (m *SessionManager) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := m.Sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return n, upstream("revoke sessions", err)
	}
	return n, nil
}

// Sweep deletes sessions past their expiresAt.
func (m *SessionManager) Sweep(ctx context.Context) (int, error) {
	n, err := m.Sessions.SweepExpired(ctx)
	if err != nil {
		return n, upstream("sweep sessions", err)
	}
	if m.Logger != nil && n > 0 {
		m.Logger.WithField("deleted", n).Info("expired sessions swept")
	}
	return n, nil
}
