package cache

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryKV is an in-process KV with TTL and glob deletes. It stands in for
// Redis in tests.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time

	gets atomic.Int64
	sets atomic.Int64
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.gets.Add(1)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.sets.Add(1)
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			delete(m.entries, k)
			if !m.expired(e) {
				n++
			}
		}
	}
	return n, nil
}

// DelPattern uses path.Match, which agrees with Redis MATCH for the * and ?
// patterns the key scheme produces.
func (m *MemoryKV) DelPattern(ctx context.Context, pattern string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.entries, k)
			if !m.expired(e) {
				n++
			}
		}
	}
	return n, nil
}

func (m *MemoryKV) Ping(ctx context.Context) error { return ctx.Err() }

// Len counts live entries.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if !m.expired(e) {
			n++
		}
	}
	return n
}

func (m *MemoryKV) Gets() int64 { return m.gets.Load() }
func (m *MemoryKV) Sets() int64 { return m.sets.Load() }

func (m *MemoryKV) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
