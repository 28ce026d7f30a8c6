package objinfo

import "sync"

// Cache stores extracted metadata by node identifier. It only grows.
//
// A single mutex guards the entries, the failed set and the readiness flag; writes are
// rare and every read holds the lock for O(1), or O(n) for Snapshot.
type Cache struct {
	entries map[string]Metadata
	failed  map[string]struct{}
	ready   bool
	mu      sync.Mutex
}

// NewCache returns an empty cache that is not ready.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Metadata),
		failed:  make(map[string]struct{}),
	}
}

// Put stores m under id.
func (c *Cache) Put(id string, m Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = m
}

// Get returns the metadata stored under id.
func (c *Cache) Get(id string) (Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.entries[id]
	return m, ok
}

// Snapshot returns a copy of all entries that is safe to use without the lock.
func (c *Cache) Snapshot() map[string]Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Metadata, len(c.entries))
	for id, m := range c.entries {
		out[id] = m
	}

	return out
}

// MarkFailed records that extraction of id failed permanently.
func (c *Cache) MarkFailed(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed[id] = struct{}{}
}

// Failed reports whether extraction of id failed.
func (c *Cache) Failed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.failed[id]
	return ok
}

// Known reports whether id has been processed, successfully or not.
func (c *Cache) Known(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; ok {
		return true
	}
	_, ok := c.failed[id]

	return ok
}

// MarkReady flags the cache as safe to serve from.
func (c *Cache) MarkReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ready = true
}

// IsReady reports whether MarkReady has been called.
func (c *Cache) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ready
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
