package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	"github.com/oksasatya/waveai-auth/internal/domain/repository"
)

const maxTxRetries = 5

// UserRepository stores users as a primary hash keyed by id plus a string
// index email -> id. Both keys are always written in one MULTI/EXEC so no
// reader observes one without the other.
type UserRepository struct {
	rdb redis.UniversalClient
}

func NewUserRepository(rdb redis.UniversalClient) *UserRepository {
	return &UserRepository{rdb: rdb}
}

func writeUser(ctx context.Context, pipe redis.Pipeliner, u *entity.User) {
	pipe.HSet(ctx, userKey(u.ID), userToHash(u))
	pipe.Set(ctx, userEmailKey(u.Email), u.ID, 0)
}

// Create binds u.Email to a new user. The email index is watched so two
// concurrent creates for the same email cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if r.rdb == nil {
		return ErrStoreUnavailable
	}
	idx := userEmailKey(u.Email)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, idx).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeUser(ctx, pipe, u)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, idx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrEmailTaken):
			return err
		case errors.Is(err, redis.TxFailedErr):
			// the index changed under us; the next attempt will see it
			continue
		default:
			return storeErr("create user", err)
		}
	}
	// still contended: the email may be free, so this is not a conflict
	return storeErr("create user", redis.TxFailedErr)
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if r.rdb == nil {
		return ErrStoreUnavailable
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		writeUser(ctx, pipe, u)
		return nil
	})
	return storeErr("save user", err)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if r.rdb == nil {
		return nil, ErrStoreUnavailable
	}
	if id == "" {
		return nil, nil
	}
	h, err := r.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, storeErr("find user by id", err)
	}
	if len(h) == 0 {
		return nil, nil
	}
	return userFromHash(h), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if r.rdb == nil {
		return nil, ErrStoreUnavailable
	}
	if email == "" {
		return nil, nil
	}
	id, err := r.rdb.Get(ctx, userEmailKey(email)).Result()
	if isNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find user by email", err)
	}
	u, err := r.FindByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	// stale index entry
	if u.Email != email {
		return nil, nil
	}
	return u, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]*entity.User, error) {
	if r.rdb == nil {
		return nil, ErrStoreUnavailable
	}
	var out []*entity.User
	iter := r.rdb.Scan(ctx, 0, userKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		h, err := r.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, storeErr("list users", err)
		}
		// deleted between SCAN and HGETALL
		if len(h) == 0 {
			continue
		}
		out = append(out, userFromHash(h))
	}
	if err := iter.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return out, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
