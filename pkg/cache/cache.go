// Package cache provides the process-wide TTL cache used by the query
// service for totals and sidebar payloads.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a key-value store with per-entry expiry. Population is not
// exclusive: concurrent misses for the same key may recompute redundantly,
// which is fine because entries are idempotent.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

type memoryCache struct {
	c *gocache.Cache
}

// NewMemory returns an in-process Cache. Expired entries are swept every
// ten minutes.
func NewMemory() Cache {
	return &memoryCache{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *memoryCache) Get(key string) (any, bool) {
	return m.c.Get(key)
}

func (m *memoryCache) Set(key string, value any, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}
