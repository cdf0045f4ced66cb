// file: internal/cache/catalog.go
// version: 1.0.0
// guid: 6f1e2d3c-4b5a-4968-8a7b-1c2d3e4f5a6b

package cache

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jdfalk/manga-organizer/internal/matcher"
)

const catalogKey = "catalog"

// CatalogLoader reads the full matcher catalog from storage.
type CatalogLoader func() ([]matcher.Candidate, error)

// CatalogCache keeps the matcher catalog in memory between imports. Any
// write to series or policies must call Invalidate.
type CatalogCache struct {
	cache *Cache[[]matcher.Candidate]
	load  CatalogLoader
}

// NewCatalogCache wraps load with a TTL cache. A ttl of zero disables caching.
func NewCatalogCache(load CatalogLoader, ttl time.Duration) *CatalogCache {
	return NewCatalogCacheWithClock(load, ttl, clockwork.NewRealClock())
}

// NewCatalogCacheWithClock is NewCatalogCache with an injectable clock.
func NewCatalogCacheWithClock(load CatalogLoader, ttl time.Duration, clock clockwork.Clock) *CatalogCache {
	return &CatalogCache{
		cache: NewWithClock[[]matcher.Candidate](ttl, clock),
		load:  load,
	}
}

// Get returns the catalog, loading it when the cached copy is missing or
// stale. Callers must not modify the returned slice.
func (c *CatalogCache) Get() ([]matcher.Candidate, error) {
	return c.cache.GetOrLoad(catalogKey, func() ([]matcher.Candidate, error) {
		return c.load()
	})
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate() {
	c.cache.Invalidate(catalogKey)
}
