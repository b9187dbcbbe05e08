package memorystore

import (
	"context"
	"sync"

	"github.com/PaulFidika/auditstore/catalog"
)

// Catalog is an in-memory catalog.Reader seeded by the caller.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewCatalog(products ...catalog.Product) *Catalog {
	c := &Catalog{products: make(map[string]catalog.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *Catalog) Product(ctx context.Context, id string) (catalog.Product, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// SetStatus changes a product's status, e.g. to open a maintenance window.
func (c *Catalog) SetStatus(id string, st catalog.Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return false
	}
	p.Status = st
	c.products[id] = p
	return true
}
