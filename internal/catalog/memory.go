package catalog

import (
	"context"
	"sync"
)

// MemoryCatalog is a fixed in-memory descriptor source, enough for the
// dev profile and tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	items map[string]ItemDescriptor
}

func NewMemoryCatalog(items ...ItemDescriptor) *MemoryCatalog {
	c := &MemoryCatalog{items: make(map[string]ItemDescriptor, len(items))}
	for _, item := range items {
		c.items[item.MealID] = item
	}
	return c
}

func (c *MemoryCatalog) Item(_ context.Context, mealID string) (*ItemDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[mealID]
	if !ok {
		return nil, false
	}
	return &item, true
}

func (c *MemoryCatalog) Put(item ItemDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.MealID] = item
}
