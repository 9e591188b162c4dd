package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local cache backed by go-cache
type MemoryCache struct {
	cache  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a memory cache. Expired items are purged every
// cleanupInterval.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		if b, ok := val.([]byte); ok {
			c.hits.Add(1)
			return b, true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores value. A zero ttl uses the default TTL given at construction.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Len returns the number of items, including expired ones not yet purged
func (c *MemoryCache) Len() int { return c.cache.ItemCount() }

// Stats returns hit and miss counts since creation
func (c *MemoryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
