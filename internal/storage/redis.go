package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores blobs as plain string keys, optionally namespaced by Prefix
// so several widgets can share one database. TTL of zero keeps keys forever.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string        // e.g. "portfolio:"; empty means no prefix
	TTL         time.Duration // 0 = no expiry
	DialTimeout time.Duration
}

// NewRedis builds a Redis-backed Store. It does not ping the server; the
// first failing call surfaces ErrUnavailable instead.
func NewRedis(opt RedisOptions) *Redis {
	dial := opt.DialTimeout
	if dial <= 0 {
		dial = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        opt.Addr,
		Password:    opt.Password,
		DB:          opt.DB,
		DialTimeout: dial,
		MaxRetries:  -1,
	})
	return &Redis{rdb: rdb, prefix: opt.Prefix, ttl: opt.TTL}
}

// NewRedisFromClient wraps an existing client (tests, shared pools).
func NewRedisFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(k string) string { return r.prefix + k }

// Get fetches key; redis.Nil maps to ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %w", ErrUnavailable, key, err)
	}
	return b, nil
}

// Set overwrites key.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error { return r.rdb.Close() }
