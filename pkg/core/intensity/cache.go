package intensity

import (
	"context"
	"sort"
	"sync"
)

// Stats describes cache usage
type Stats struct {
	Size   int      `json:"size"`
	Keys   []string `json:"keys"`
	Hits   int64    `json:"hits"`
	Misses int64    `json:"misses"`
}

// Cache memoises exploration results. Entries never expire; Clear empties it.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// MemoryCache is an unbounded in-process Cache safe for concurrent use
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
	hits    int64
	misses  int64
}

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[key]
	if !ok {
		c.misses++
		return Result{}, false, nil
	}
	c.hits++
	return result.Clone(), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, result Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = result.Clone()
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Result)
	c.hits = 0
	c.misses = 0
	return nil
}

func (c *MemoryCache) Stats(_ context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return Stats{
		Size:   len(c.entries),
		Keys:   keys,
		Hits:   c.hits,
		Misses: c.misses,
	}, nil
}
