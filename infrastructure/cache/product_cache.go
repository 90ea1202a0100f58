package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"fridge/models"
)

type productEntry struct {
	product   models.ProductRecord
	expiresAt time.Time
}

// ProductCache caches lookup results in process memory.
type ProductCache struct {
	mu       sync.RWMutex
	products map[string]productEntry
	now      func() time.Time
}

func NewProductCache() *ProductCache {
	return &ProductCache{products: make(map[string]productEntry), now: time.Now}
}

func (c *ProductCache) SetProduct(_ context.Context, code string, product models.ProductRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[strings.TrimSpace(code)] = productEntry{product: product, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *ProductCache) GetProduct(_ context.Context, code string) (models.ProductRecord, bool, error) {
	code = strings.TrimSpace(code)
	c.mu.RLock()
	entry, ok := c.products[code]
	c.mu.RUnlock()
	if !ok {
		return models.ProductRecord{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.products, code)
		c.mu.Unlock()
		return models.ProductRecord{}, false, nil
	}
	return entry.product, true, nil
}
