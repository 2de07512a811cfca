package dnsbench

import (
	"sync"
)

// ResolverCache maps server addresses to reusable resolver handles for the lifetime of one run.
// It is safe for concurrent use. The first caller for an address creates the handle, concurrent
// callers for the same address wait for it and never create a duplicate. There is no eviction,
// the map is bounded by the server list.
type ResolverCache struct {
	create func(addr string) (*ResolverHandle, error)

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once   sync.Once
	handle *ResolverHandle
	err    error
}

// NewResolverCache creates an empty cache building missing handles with create.
func NewResolverCache(create func(addr string) (*ResolverHandle, error)) *ResolverCache {
	return &ResolverCache{create: create, entries: make(map[string]*cacheEntry)}
}

// GetOrCreate returns the handle bound to addr, creating it on first use.
// A creation error is remembered, so every later call for addr reports it as well.
func (c *ResolverCache) GetOrCreate(addr string) (*ResolverHandle, error) {
	c.mu.Lock()
	e, ok := c.entries[addr]
	if !ok {
		e = &cacheEntry{}
		c.entries[addr] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.handle, e.err = c.create(addr)
	})
	return e.handle, e.err
}

// Len returns the number of addresses in the cache.
func (c *ResolverCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
