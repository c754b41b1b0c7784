package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/observability"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

const (
	resultHit      = "hit"
	resultMiss     = "miss"
	resultError    = "error"
	resultBadValue = "decode_error"
)

type Options struct {
	Namespace string
	// DefaultTTL applies when GetOrLoad is called with ttl <= 0.
	DefaultTTL time.Duration
	// LoadTimeout bounds a shared load, which outlives any single caller.
	LoadTimeout time.Duration
}

// Cache is the cache-aside layer over a KV. Concurrent misses on one key
// share a single load.
type Cache struct {
	kv    KV
	log   *logger.Logger
	keys  Keys
	ttl   time.Duration
	group singleflight.Group

	loadTimeout time.Duration
	// gen advances on every invalidation. A load that started under an older
	// generation never leaves its value behind.
	gen atomic.Uint64
}

func New(kv KV, log *logger.Logger, opts Options) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	return &Cache{
		kv:          kv,
		log:         log.With("service", "QueryCache"),
		keys:        NewKeys(opts.Namespace),
		ttl:         opts.DefaultTTL,
		loadTimeout: opts.LoadTimeout,
	}
}

func (c *Cache) Keys() Keys {
	if c == nil {
		return NewKeys("")
	}
	return c.keys
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.kv == nil {
		return errors.New("cache: no store configured")
	}
	return c.kv.Ping(ctx)
}

// GetOrLoad returns the cached value for key, or runs load, stores the JSON
// encoding with ttl and returns it. A store that errors on read degrades to a
// direct load without populating.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (out T, err error) {
	if c == nil || c.kv == nil {
		return load(ctx)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	ctx, span := observability.StartSpan(ctx, "cache.GetOrLoad", attribute.String("cache.key", key))
	defer func() { observability.EndSpan(span, err) }()

	raw, hit, kvErr := c.lookup(ctx, key)
	if kvErr != nil {
		observability.Current().IncCache(resultError)
		c.log.Warn("cache read failed, loading directly", "key", key, "error", knowledge.CacheUnavailable("get", kvErr))
		span.SetAttributes(attribute.String("cache.result", resultError))
		return load(ctx)
	}
	if hit {
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			observability.Current().IncCache(resultHit)
			span.SetAttributes(attribute.String("cache.result", resultHit))
			return out, nil
		}
		observability.Current().IncCache(resultBadValue)
		c.log.Warn("cache value undecodable, reloading", "key", key)
	}

	observability.Current().IncCache(resultMiss)
	span.SetAttributes(attribute.String("cache.result", resultMiss))
	gen := c.gen.Load()
	ch := c.group.DoChan(strconv.FormatUint(gen, 10)+"|"+key, func() (any, error) {
		// Detached from the first caller so its cancellation never fails the
		// callers sharing the flight.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		// Another flight may have populated the key between our read and now.
		if raw, hit, err := c.lookup(lctx, key); err == nil && hit {
			var cached T
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return []byte(raw), nil
			}
		}
		val, err := load(lctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		c.populate(lctx, gen, key, string(b), ttl)
		return b, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return out, ctx.Err()
	}
	if res.Err != nil {
		return out, res.Err
	}
	v, shared := res.Val, res.Shared
	if shared {
		span.SetAttributes(attribute.Bool("cache.shared", true))
	}
	// Each caller decodes its own copy so results never alias.
	var fresh T
	if err := json.Unmarshal(v.([]byte), &fresh); err != nil {
		return out, err
	}
	return fresh, nil
}

// populate stores a loaded value unless an invalidation ran since the load
// began. The second check catches an invalidation that lands between the
// first check and the write.
func (c *Cache) populate(ctx context.Context, gen uint64, key, val string, ttl time.Duration) {
	if c.gen.Load() != gen {
		return
	}
	if err := c.kv.Set(ctx, key, val, ttl); err != nil {
		c.log.Warn("cache populate failed", "key", key, "error", knowledge.CacheUnavailable("set", err))
		return
	}
	if c.gen.Load() != gen {
		_, _ = c.kv.Del(ctx, key)
	}
}

func (c *Cache) lookup(ctx context.Context, key string) (string, bool, error) {
	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		return raw, true, nil
	case errors.Is(err, ErrMiss):
		return "", false, nil
	default:
		return "", false, err
	}
}

// Invalidate drops exact keys. Store errors come back wrapped as
// CacheUnavailable and are also logged.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) (int64, error) {
	if c == nil || c.kv == nil || len(keys) == 0 {
		return 0, nil
	}
	c.gen.Add(1)
	n, err := c.kv.Del(ctx, keys...)
	if err != nil {
		cerr := knowledge.CacheUnavailable("invalidate", err)
		c.log.Warn("cache invalidation skipped", "keys", len(keys), "error", cerr)
		return n, cerr
	}
	observability.Current().IncCacheInvalidation("key")
	return n, nil
}

func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int64, error) {
	if c == nil || c.kv == nil {
		return 0, nil
	}
	c.gen.Add(1)
	n, err := c.kv.DelPattern(ctx, pattern)
	if err != nil {
		cerr := knowledge.CacheUnavailable("invalidate_pattern", err)
		c.log.Warn("cache pattern invalidation skipped", "pattern", pattern, "error", cerr)
		return n, cerr
	}
	observability.Current().IncCacheInvalidation("pattern")
	return n, nil
}

// InvalidateBatch applies the write-path policy for a flushed batch. Failures
// are logged and never surface to the writer.
func (c *Cache) InvalidateBatch(ctx context.Context, b *knowledge.Batch) {
	if c == nil || c.kv == nil {
		return
	}
	keys, patterns := c.keys.AffectedBy(b)
	var removed int64
	n, _ := c.Invalidate(ctx, keys...)
	removed += n
	for _, p := range patterns {
		n, _ := c.InvalidatePattern(ctx, p)
		removed += n
	}
	if len(patterns) > 0 {
		c.log.Debug("cache invalidated after flush", "patterns", len(patterns), "removed", removed)
	}
}
