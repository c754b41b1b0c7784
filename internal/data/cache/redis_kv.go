package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	scanCount   = 500
	unlinkBatch = 500
)

// RedisKV implements KV over go-redis. Every call runs under its own timeout.
type RedisKV struct {
	rdb     goredis.UniversalClient
	timeout time.Duration
}

func NewRedisKV(rdb goredis.UniversalClient, timeout time.Duration) *RedisKV {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisKV{rdb: rdb, timeout: timeout}
}

func (r *RedisKV) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	n, err := r.rdb.Unlink(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis unlink: %w", err)
	}
	return n, nil
}

// DelPattern walks the keyspace with SCAN and unlinks matches in batches,
// never blocking the server the way KEYS would.
func (r *RedisKV) DelPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		removed int64
		pending []string
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := r.Del(ctx, pending...)
		removed += n
		pending = pending[:0]
		return err
	}
	for {
		sctx, cancel := r.bound(ctx)
		keys, next, err := r.rdb.Scan(sctx, cursor, pattern, scanCount).Result()
		cancel()
		if err != nil {
			return removed, fmt.Errorf("redis scan %q: %w", pattern, err)
		}
		pending = append(pending, keys...)
		if len(pending) >= unlinkBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
