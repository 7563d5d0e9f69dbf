package store

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cacheKey struct {
	host      string
	timestamp string
}

// Cached serves Get from an expiring LRU. Stored records never change, so
// entries are only evicted by size or age. Lists always go to the backing
// repository.
type Cached struct {
	Repository
	cache *expirable.LRU[cacheKey, Record]
}

// NewCached wraps repo. A zero ttl keeps entries until evicted by size.
func NewCached(repo Repository, size int, ttl time.Duration) *Cached {
	return &Cached{
		Repository: repo,
		cache:      expirable.NewLRU[cacheKey, Record](size, nil, ttl),
	}
}

func (c *Cached) Get(ctx context.Context, host, timestamp string) (Record, error) {
	key := cacheKey{host: host, timestamp: timestamp}
	if rec, ok := c.cache.Get(key); ok {
		rec.Data = slices.Clone(rec.Data)
		return rec, nil
	}
	rec, err := c.Repository.Get(ctx, host, timestamp)
	if err != nil {
		return Record{}, err
	}
	c.cache.Add(key, rec)
	rec.Data = slices.Clone(rec.Data)
	return rec, nil
}

// Len reports the number of cached records.
func (c *Cached) Len() int {
	return c.cache.Len()
}

var _ Repository = (*Cached)(nil)
