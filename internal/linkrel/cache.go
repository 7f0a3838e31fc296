package linkrel

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes resolved graphs by entry module path. Implementations must be
// safe for concurrent use; a backend error is treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, modules []string) error
}

// MapCache keeps every entry for the life of the process.
type MapCache struct {
	mu      sync.RWMutex
	entries map[string][]string
}

func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string][]string)}
}

func (c *MapCache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	modules, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), modules...), true, nil
}

func (c *MapCache) Set(_ context.Context, key string, modules []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]string(nil), modules...)
	return nil
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LRUCache bounds the number of cached entry modules.
type LRUCache struct {
	entries *lru.Cache[string, []string]
}

func NewLRUCache(size int) (*LRUCache, error) {
	entries, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{entries: entries}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]string, bool, error) {
	modules, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), modules...), true, nil
}

func (c *LRUCache) Set(_ context.Context, key string, modules []string) error {
	c.entries.Add(key, append([]string(nil), modules...))
	return nil
}

func (c *LRUCache) Len() int {
	return c.entries.Len()
}
