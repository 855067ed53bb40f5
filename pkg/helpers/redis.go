package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions describes how to reach redis. URL wins over Addr when set.
type RedisOptions struct {
	URL          string
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient initializes a redis client. I/O timeouts are delegated to the
// client options; callers do not add their own.
func NewRedisClient(o RedisOptions) (*redis.Client, error) {
	var opts *redis.Options
	if o.URL != "" {
		parsed, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
		if o.Password != "" && opts.Password == "" {
			opts.Password = o.Password
		}
	} else {
		opts = &redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB}
	}
	if o.DialTimeout > 0 {
		opts.DialTimeout = o.DialTimeout
	}
	if o.ReadTimeout > 0 {
		opts.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout > 0 {
		opts.WriteTimeout = o.WriteTimeout
	}
	return redis.NewClient(opts), nil
}

// RedisPing verifies the connection is alive.
func RedisPing(ctx context.Context, rdb redis.UniversalClient) error {
	if rdb == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

func RedisSetJSON(ctx context.Context, rdb redis.UniversalClient, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

func RedisGetJSON[T any](ctx context.Context, rdb redis.UniversalClient, key string, dest *T) (bool, error) {
	res, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(res, dest); err != nil {
		return false, err
	}
	return true, nil
}
