// Package cache implements the TTL-bounded read-through cache shared by all
// query-issuing components. Entries are evicted lazily on access; there is no
// background sweep.
package cache

import (
	"net/url"
	"sync"
	"time"
)

// DefaultTTL matches the server-side freshness window for listings
const DefaultTTL = 2 * time.Minute

type entry struct {
	payload  []byte
	storedAt time.Time
}

// Cache is a process-wide store keyed by normalized request signature.
// Payloads are raw JSON bytes so cached reads re-decode into fresh values
// and never alias structs held by callers.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// New creates a cache with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Key builds the normalized request signature: endpoint plus sorted query
// parameters. Two requests for the same data always produce the same key
// regardless of parameter order.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	// url.Values.Encode sorts by key
	return endpoint + "?" + params.Encode()
}

// Get returns the cached payload, or false when the entry is absent or its
// age exceeds the TTL. Stale entries are evicted as a side effect.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Since(e.storedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have refreshed it
		if cur, ok := c.entries[key]; ok && time.Since(cur.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.payload, true
}

// Put stores a payload. Only read (query) results are ever stored; mutation
// paths bypass the cache entirely.
func (c *Cache) Put(key string, payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	c.mu.Lock()
	c.entries[key] = entry{payload: buf, storedAt: time.Now()}
	c.mu.Unlock()
}

// InvalidateAll drops every entry. Called after any successful mutation and
// on credential change.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of stored entries, stale or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
