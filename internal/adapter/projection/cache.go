package projection

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// CachedTransformer wraps a CoordinateTransformer with an in-memory LRU
// cache keyed by EPSG pair and input coordinate.
type CachedTransformer struct {
	inner  domain.CoordinateTransformer
	cache  *lruCache
	lookup *prometheus.CounterVec
}

// NewCachedTransformer creates a cache decorator around a transformer.
// lookups, if non-nil, is incremented with result={hit,miss}.
func NewCachedTransformer(inner domain.CoordinateTransformer, maxEntries int, lookups *prometheus.CounterVec) *CachedTransformer {
	return &CachedTransformer{
		inner:  inner,
		cache:  newLRUCache(maxEntries),
		lookup: lookups,
	}
}

type cacheKey struct {
	from, to int
	x, y     float64
}

func (c *CachedTransformer) Transform(ctx context.Context, fromEPSG, toEPSG int, x, y float64) (float64, float64, error) {
	key := cacheKey{from: fromEPSG, to: toEPSG, x: x, y: y}
	if p, ok := c.cache.get(key); ok {
		c.observe("hit")
		return p.X, p.Y, nil
	}
	c.observe("miss")
	lon, lat, err := c.inner.Transform(ctx, fromEPSG, toEPSG, x, y)
	if err != nil {
		return 0, 0, err
	}
	c.cache.put(key, domain.Point{X: lon, Y: lat})
	return lon, lat, nil
}

// TransformBatch resolves each point through the cache.
func (c *CachedTransformer) TransformBatch(ctx context.Context, fromEPSG, toEPSG int, pts []domain.Point) ([]domain.Point, []error) {
	out := make([]domain.Point, len(pts))
	errs := make([]error, len(pts))
	for i, p := range pts {
		x, y, err := c.Transform(ctx, fromEPSG, toEPSG, p.X, p.Y)
		out[i] = domain.Point{X: x, Y: y}
		errs[i] = err
	}
	return out, errs
}

// Len returns the number of cached entries.
func (c *CachedTransformer) Len() int {
	return c.cache.len()
}

func (c *CachedTransformer) observe(result string) {
	if c.lookup != nil {
		c.lookup.WithLabelValues(result).Inc()
	}
}

// lruCache holds projected points, most recently used at the front of
// order. Safe for concurrent use.
type lruCache struct {
	mu    sync.Mutex
	limit int
	items map[cacheKey]*list.Element
	order *list.List
}

type cachedPoint struct {
	key cacheKey
	pt  domain.Point
}

func newLRUCache(limit int) *lruCache {
	return &lruCache{
		limit: limit,
		items: make(map[cacheKey]*list.Element),
		order: list.New(),
	}
}

func (c *lruCache) get(key cacheKey) (domain.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return domain.Point{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedPoint).pt, true
}

func (c *lruCache) put(key cacheKey, pt domain.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cachedPoint).pt = pt
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cachedPoint{key: key, pt: pt})

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cachedPoint).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
