// Package cache is a small in-process TTL cache. It is an explicit handle
// injected into whoever needs memoization; there is no package-level
// instance.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache maps string keys to values with a fixed TTL chosen by the caller
// at construction. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives a cache key from the SHA-256 of its parts. A NUL separator
// between parts keeps ("ab","c") and ("a","bc") from colliding.
func Key(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Purge drops every expired entry. Callers with long-lived caches can run
// this periodically; Get already drops expired entries lazily.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
