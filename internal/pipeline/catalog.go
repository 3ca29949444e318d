package pipeline

import (
	"context"
	"sync"

	"github.com/guarzo/resellgap/internal/model"
)

// Catalog is an in-memory ItemSource keyed by item ID.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]model.CatalogItem
	order []string
}

// NewCatalog indexes items by ID. Later duplicates replace earlier ones.
func NewCatalog(items []model.CatalogItem) *Catalog {
	c := &Catalog{items: make(map[string]model.CatalogItem, len(items))}
	for _, it := range items {
		c.Put(it)
	}
	return c
}

// Put adds or replaces an item.
func (c *Catalog) Put(item model.CatalogItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[item.ID]; !ok {
		c.order = append(c.order, item.ID)
	}
	c.items[item.ID] = item
}

// Item returns the item with the given ID or model.ErrNotFound.
func (c *Catalog) Item(_ context.Context, id string) (model.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return model.CatalogItem{}, model.ErrNotFound
	}
	return it, nil
}

// IDs returns every item ID in insertion order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
