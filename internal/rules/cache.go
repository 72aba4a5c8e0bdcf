package rules

import (
	"context"
	"sync"
	"time"
)

// Cache stores rule selections by query key.
type Cache interface {
	Get(ctx context.Context, key string) ([]RuleSpec, bool, error)
	Set(ctx context.Context, key string, specs []RuleSpec) error
}

type memoryItem struct {
	specs   []RuleSpec
	expires time.Time
}

// MemoryCache is an in-process Cache. A zero TTL keeps entries until Purge.
type MemoryCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryItem
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now, items: make(map[string]memoryItem)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]RuleSpec, bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !item.expires.IsZero() && !c.now().Before(item.expires) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]RuleSpec(nil), item.specs...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, specs []RuleSpec) error {
	item := memoryItem{specs: append([]RuleSpec(nil), specs...)}
	if c.ttl > 0 {
		item.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	c.items = make(map[string]memoryItem)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
