package resilience

import (
	"context"
	"sync"
	"time"

	"gasroute/internal/opt"
)

// MatrixCache stores successful provider responses keyed by canonicalized
// request. A hit bypasses limiter, budget, and network entirely.
type MatrixCache interface {
	Get(ctx context.Context, key string) (opt.Matrix, bool)
	Put(ctx context.Context, key string, m opt.Matrix, ttl time.Duration)
}

type memoryEntry struct {
	m       opt.Matrix
	expires time.Time
}

// MemoryCache is the default in-process TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (opt.Matrix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return opt.Matrix{}, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return opt.Matrix{}, false
	}
	return e.m, true
}

func (c *MemoryCache) Put(_ context.Context, key string, m opt.Matrix, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{m: m, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}
