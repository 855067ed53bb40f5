package repository

import (
	"context"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

// SessionRepository is the session store.
type SessionRepository interface {
	Create(ctx context.Context, s *entity.Session) error
	// FindByToken returns only sessions that are active and not past expiresAt.
	FindByToken(ctx context.Context, token string) (*entity.Session, error)
	// GetByToken returns an active session even if its expiresAt has passed.
	GetByToken(ctx context.Context, token string) (*entity.Session, error)
	Revoke(ctx context.Context, s *entity.Session) error
	ListActiveByUser(ctx context.Context, userID string) ([]*entity.Session, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
	SweepExpired(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// AuditRepository persists the authentication audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, e entity.AuditEntry) error
}
