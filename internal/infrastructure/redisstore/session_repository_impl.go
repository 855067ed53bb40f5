package redisstore

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	"github.com/oksasatya/waveai-auth/internal/domain/repository"
)

// SessionTTL is the store-level lifetime put on every session key. It is
// independent of the session's own expiresAt and both are enforced.
const SessionTTL = 24 * time.Hour

// revokeScript flips isActive on whichever session copies still exist. A copy
// that already expired is not recreated without a TTL.
var revokeScript = redis.NewScript(`
local n = 0
for i = 1, 2 do
  if redis.call("EXISTS", KEYS[i]) == 1 then
    redis.call("HSET", KEYS[i], "isActive", "false")
    n = n + 1
  end
end
redis.call("SREM", KEYS[3], ARGV[1])
return n
`)

// SessionRepository keeps two full copies of each session, one under the
// token and one under the id, plus a per-user set of session ids.
type SessionRepository struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

type SessionOption func(*SessionRepository)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(r *SessionRepository) { r.now = now }
}

// WithTTL overrides SessionTTL.
func WithTTL(ttl time.Duration) SessionOption {
	return func(r *SessionRepository) { r.ttl = ttl }
}

func NewSessionRepository(rdb redis.UniversalClient, opts ...SessionOption) *SessionRepository {
	r := &SessionRepository{rdb: rdb, ttl: SessionTTL, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *SessionRepository) Create(ctx context.Context, s *entity.Session) error {
	if r.rdb == nil {
		return ErrStoreUnavailable
	}
	fields := sessionToHash(s)
	tk, ik, uk := sessionTokenKey(s.Token), sessionIDKey(s.ID), userSessionsKey(s.UserID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tk, fields)
		pipe.Expire(ctx, tk, r.ttl)
		pipe.HSet(ctx, ik, fields)
		pipe.Expire(ctx, ik, r.ttl)
		pipe.SAdd(ctx, uk, s.ID)
		pipe.Expire(ctx, uk, r.ttl)
		return nil
	})
	return storeErr("create session", err)
}

// GetByToken returns the active session for token without checking expiresAt.
// SessionManager.Resolve uses it so a session past expiresAt but still inside
// its key TTL is found and revoked instead of lingering as active.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*entity.Session, error) {
	if r.rdb == nil {
		return nil, ErrStoreUnavailable
	}
	if token == "" {
		return nil, nil
	}
	h, err := r.rdb.HGetAll(ctx, sessionTokenKey(token)).Result()
	if err != nil {
		return nil, storeErr("get session", err)
	}
	if len(h) == 0 {
		return nil, nil
	}
	s := sessionFromHash(h)
	if !s.IsActive {
		return nil, nil
	}
	return s, nil
}

// FindByToken is the strict read: only sessions valid for authentication.
func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*entity.Session, error) {
	s, err := r.GetByToken(ctx, token)
	if err != nil || s == nil {
		return nil, err
	}
	if s.ExpiredAt(r.now()) {
		return nil, nil
	}
	return s, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, s *entity.Session) error {
	if r.rdb == nil {
		return ErrStoreUnavailable
	}
	keys := []string{sessionTokenKey(s.Token), sessionIDKey(s.ID), userSessionsKey(s.UserID)}
	if err := revokeScript.Run(ctx, r.rdb, keys, s.ID).Err(); err != nil {
		return storeErr("revoke session", err)
	}
	s.IsActive = false
	return nil
}

// ListActiveByUser returns the user's valid sessions, newest first. Ids whose
// records already expired out of redis are pruned from the user set.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]*entity.Session, error) {
	if r.rdb == nil {
		return nil, ErrStoreUnavailable
	}
	uk := userSessionsKey(userID)
	ids, err := r.rdb.SMembers(ctx, uk).Result()
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	now := r.now()
	out := make([]*entity.Session, 0, len(ids))
	for _, id := range ids {
		h, err := r.rdb.HGetAll(ctx, sessionIDKey(id)).Result()
		if err != nil {
			return nil, storeErr("list sessions", err)
		}
		if len(h) == 0 {
			_ = r.rdb.SRem(ctx, uk, id).Err()
			continue
		}
		s := sessionFromHash(h)
		if s.ValidAt(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	sessions, err := r.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range sessions {
		if err := r.Revoke(ctx, s); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// SweepExpired deletes every session whose expiresAt has passed, together
// with its id copy and user set membership. Live sessions are never touched.
func (r *SessionRepository) SweepExpired(ctx context.Context) (int, error) {
	if r.rdb == nil {
		return 0, ErrStoreUnavailable
	}
	now := r.now()
	deleted := 0
	iter := r.rdb.Scan(ctx, 0, sessionTokenKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		h, err := r.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return deleted, storeErr("sweep sessions", err)
		}
		if len(h) == 0 {
			continue
		}
		s := sessionFromHash(h)
		if !s.ExpiredAt(now) {
			continue
		}
		_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if s.ID != "" {
				pipe.Del(ctx, sessionIDKey(s.ID))
			}
			if s.UserID != "" {
				pipe.SRem(ctx, userSessionsKey(s.UserID), s.ID)
			}
			return nil
		})
		if err != nil {
			return deleted, storeErr("sweep sessions", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, storeErr("sweep sessions", err)
	}
	return deleted, nil
}

func (r *SessionRepository) CountActive(ctx context.Context) (int, error) {
	if r.rdb == nil {
		return 0, ErrStoreUnavailable
	}
	now := r.now()
	n := 0
	iter := r.rdb.Scan(ctx, 0, sessionTokenKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		h, err := r.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return 0, storeErr("count sessions", err)
		}
		if len(h) > 0 && sessionFromHash(h).ValidAt(now) {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, storeErr("count sessions", err)
	}
	return n, nil
}

var _ repository.SessionRepository = (*SessionRepository)(nil)
