package regions

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/observability"
)

// CachedLookup wraps a RegionLookup with a bounded LRU cache keyed by the
// point rounded to six decimals.
type CachedLookup struct {
	inner   domain.RegionLookup
	cache   *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewCachedLookup creates a cache decorator around a lookup. metrics may be nil.
func NewCachedLookup(inner domain.RegionLookup, maxEntries int, metrics *observability.Metrics) (*CachedLookup, error) {
	cache, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("region cache: %w", err)
	}
	return &CachedLookup{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedLookup) RegionFor(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if name, ok := c.cache.Get(key); ok {
		c.observe("hit")
		return name, nil
	}
	c.observe("miss")

	name, err := c.inner.RegionFor(ctx, lat, lon)
	if err != nil {
		// Failures are not cached so the next call retries.
		return "", err
	}
	c.cache.Add(key, name)
	return name, nil
}

// Len is the number of cached points.
func (c *CachedLookup) Len() int {
	return c.cache.Len()
}

func (c *CachedLookup) observe(result string) {
	if c.metrics != nil {
		c.metrics.RegionCache.WithLabelValues(result).Inc()
	}
}
