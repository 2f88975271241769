package forecast

import (
	"sync"
	"time"
)

// Cache keeps the last good upstream body per request URL. Keys carry the
// cache version so a version bump never serves bodies stored under the old one.
type Cache struct {
	version string

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body     []byte
	storedAt time.Time
}

func NewCache(version string) *Cache {
	return &Cache{
		version: version,
		entries: make(map[string]cacheEntry),
	}
}

// Name is the namespace shared with the browser-side asset cache.
func (c *Cache) Name() string {
	return CacheName(c.version)
}

// CacheName returns the cache namespace for version.
func CacheName(version string) string {
	return "snowflake-mountains-" + version
}

func (c *Cache) key(url string) string {
	return c.version + ":" + url
}

func (c *Cache) Put(url string, body []byte, now time.Time) {
	cp := make([]byte, len(body))
	copy(cp, body)

	c.mu.Lock()
	c.entries[c.key(url)] = cacheEntry{body: cp, storedAt: now}
	c.mu.Unlock()
}

// Get returns the stored body for url and when it was stored.
func (c *Cache) Get(url string) ([]byte, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[c.key(url)]
	c.mu.RUnlock()
	if !ok {
		return nil, time.Time{}, false
	}
	return e.body, e.storedAt, true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
