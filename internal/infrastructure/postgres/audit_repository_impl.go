package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

// AuditRepository appends auth events to audit_logs.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(ctx context.Context, e entity.AuditEntry) error {
	if r == nil || r.pool == nil {
		return errors.New("audit log not configured")
	}
	var meta []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (user_id, email, action, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.UserID, e.Email, e.Action, e.IPAddress, e.UserAgent, meta, e.CreatedAt)
	return err
}
