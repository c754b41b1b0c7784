package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by KV.Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache: miss")

// KV is the key/value store under the cache. Values are opaque strings.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	// DelPattern removes every key matching a glob and reports how many went.
	DelPattern(ctx context.Context, pattern string) (int64, error)
	Ping(ctx context.Context) error
}
