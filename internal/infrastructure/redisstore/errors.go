package redisstore

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/waveai-auth/internal/domain/repository"
)

var (
	// ErrStoreUnavailable is returned when redis cannot be reached or the
	// store handle was never configured. It is never used to mean "absent".
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrEmailTaken = repository.ErrEmailTaken
)

// storeErr wraps a redis failure as ErrStoreUnavailable. redis.Nil must be
// handled by the caller before reaching here.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
