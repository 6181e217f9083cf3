package timeledger

import (
	"strings"
	"sync"
	"time"
)

// readCache is a bounded-TTL cache for read results, keyed by
// operation plus arguments. Entries older than the TTL are treated as
// absent; mutations invalidate by key prefix.
type readCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

func newReadCache(ttl time.Duration, now func() time.Time) *readCache {
	return &readCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *readCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *readCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
}

// invalidate removes every entry whose key starts with prefix; an empty
// prefix clears the whole cache.
func (c *readCache) invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}
