package recognition

import "sync"

// CollectionCache remembers which collections are known to exist.
type CollectionCache interface {
	Has(collectionID string) bool
	Add(collectionID string)
}

// MemoryCache is a process-lifetime cache, safe for concurrent use.
type MemoryCache struct {
	mu    sync.RWMutex
	known map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{known: make(map[string]struct{})}
}

func (c *MemoryCache) Has(collectionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[collectionID]
	return ok
}

func (c *MemoryCache) Add(collectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[collectionID] = struct{}{}
}

// NoCache never remembers anything, so every EnsureCollection re-checks.
type NoCache struct{}

func (NoCache) Has(string) bool { return false }
func (NoCache) Add(string)      {}
