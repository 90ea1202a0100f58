package fooddata

import (
	"context"
	"log/slog"
	"time"

	"fridge/models"
)

// ProductLookup is the uncached source.
type ProductLookup interface {
	LookupProductByCode(ctx context.Context, code string) (models.ProductRecord, error)
}

// ProductCache stores lookup results by code.
type ProductCache interface {
	GetProduct(ctx context.Context, code string) (models.ProductRecord, bool, error)
	SetProduct(ctx context.Context, code string, product models.ProductRecord, ttl time.Duration) error
}

// CachedLookup serves repeated scans from cache. Misses and failures are not cached.
type CachedLookup struct {
	next  ProductLookup
	cache ProductCache
	ttl   time.Duration
}

func NewCachedLookup(next ProductLookup, cache ProductCache, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedLookup{next: next, cache: cache, ttl: ttl}
}

func (c *CachedLookup) LookupProductByCode(ctx context.Context, code string) (models.ProductRecord, error) {
	if product, ok, err := c.cache.GetProduct(ctx, code); err != nil {
		slog.Warn("product cache read failed", slog.String("code", code), slog.Any("err", err))
	} else if ok {
		return product, nil
	}

	product, err := c.next.LookupProductByCode(ctx, code)
	if err != nil {
		return models.ProductRecord{}, err
	}
	if err := c.cache.SetProduct(ctx, code, product, c.ttl); err != nil {
		slog.Warn("product cache write failed", slog.String("code", code), slog.Any("err", err))
	}
	return product, nil
}
