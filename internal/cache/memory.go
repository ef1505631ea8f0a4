package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, []domain.InferenceResult]
}

// NewMemoryCache creates a cache holding at most maxItems results for ttl.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []domain.InferenceResult](maxItems, nil, ttl),
	}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]domain.InferenceResult, bool, error) {
	results, ok := c.lru.Get(key)
	return results, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, results []domain.InferenceResult) error {
	c.lru.Add(key, results)
	return nil
}

func (c *MemoryCache) Purge(context.Context) error {
	c.lru.Purge()
	return nil
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
