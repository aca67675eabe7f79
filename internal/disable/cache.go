// internal/disable/cache.go
//
// Process-wide read-through cache of disable decisions.
//
// Context
// -------
// The tracking gate asks "is site N disabled?" once per inbound event.  The
// answer changes only when an admin writes to the store, so decisions are
// kept in a sync.Map until the store invalidates them.  There is no TTL and
// no eviction: the key space is bounded by the number of sites.
//
// Consistency
// -----------
//   - Concurrent misses for one site share a single store query
//     (singleflight, as the old tenant cache did).
//   - Invalidate bumps a generation counter under mu.  A load that started
//     before an invalidation sees a different generation when it finishes
//     and returns its value without caching it, so a pre-write answer can
//     never outlive the write.
//   - Invalidate also forgets the in-flight singleflight call, so a reader
//     arriving after the invalidation starts a fresh query.
//
// Notes
// -----
//   - The cache is local to one process.  Deployments with several serving
//     instances set cache.enabled=false or accept cross-instance staleness.
//   - Empty at start, discarded on restart; always rebuildable from the store.
package disable

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/trackgate/internal/metrics"
)

// Source is the authority the cache reads through to.  *Store satisfies it.
type Source interface {
	IsDisabled(ctx context.Context, siteID int64) (bool, error)
}

// Cache is safe for concurrent use.  Zero value is unusable; use NewCache.
type Cache struct {
	src Source
	sfg singleflight.Group
	m   sync.Map // int64 → bool

	mu  sync.Mutex // orders stores against invalidations
	gen uint64
}

// NewCache returns an empty cache reading through to src.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Get returns the cached decision for siteID, loading it on a miss.
func (c *Cache) Get(ctx context.Context, siteID int64) (bool, error) {
	if v, ok := c.m.Load(siteID); ok {
		metrics.CacheHitsTotal.Inc()
		return v.(bool), nil
	}
	metrics.CacheMissesTotal.Inc()

	// The shared load must not die with whichever request started it.
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := c.sfg.Do(sfKey(siteID), func() (any, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(siteID); ok {
			return v.(bool), nil
		}

		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		disabled, err := c.src.IsDisabled(loadCtx, siteID)
		if err != nil {
			return false, err
		}

		c.mu.Lock()
		if c.gen == gen {
			if _, loaded := c.m.LoadOrStore(siteID, disabled); !loaded {
				metrics.CachedDecisions.Inc()
			}
		}
		c.mu.Unlock()
		return disabled, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// IsDisabled lets a Cache stand wherever a Store is read.
func (c *Cache) IsDisabled(ctx context.Context, siteID int64) (bool, error) {
	return c.Get(ctx, siteID)
}

// Invalidate drops the decision for siteID whether or not one is cached.
func (c *Cache) Invalidate(siteID int64) {
	c.mu.Lock()
	c.gen++
	if _, present := c.m.LoadAndDelete(siteID); present {
		metrics.CachedDecisions.Dec()
	}
	c.mu.Unlock()

	c.sfg.Forget(sfKey(siteID))
	metrics.CacheInvalidationsTotal.Inc()
}

// Len reports how many decisions are cached.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func sfKey(siteID int64) string { return strconv.FormatInt(siteID, 10) }
