package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

// MemoryCache provides in-process caching for simulation results
type MemoryCache struct {
	cache     *gocache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewMemoryCache creates a new in-memory simulation cache
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return &MemoryCache{
		cache:   gocache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached simulation result
func (mc *MemoryCache) Get(ctx context.Context, key string) (*models.SimulationResult, bool) {
	if item, found := mc.cache.Get(key); found {
		if result, ok := item.(*models.SimulationResult); ok {
			mc.hitCount.Add(1)
			mc.record(true)
			return clone(result), true
		}
	}

	mc.missCount.Add(1)
	mc.record(false)
	return nil, false
}

// Set stores a simulation result. When the cache is full, expired entries
// are purged first and the write is dropped if that frees nothing.
func (mc *MemoryCache) Set(ctx context.Context, key string, result *models.SimulationResult) error {
	if mc.maxSize > 0 && mc.cache.ItemCount() >= mc.maxSize {
		mc.cache.DeleteExpired()
		if mc.cache.ItemCount() >= mc.maxSize {
			return nil
		}
	}

	mc.cache.Set(key, clone(result), mc.ttl)
	return nil
}

// Clear flushes the entire cache
func (mc *MemoryCache) Clear() {
	mc.cache.Flush()
	mc.hitCount.Store(0)
	mc.missCount.Store(0)
}

// Stats returns cache statistics
func (mc *MemoryCache) Stats() (hits, misses uint64, ratio float64) {
	hits = mc.hitCount.Load()
	misses = mc.missCount.Load()
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (mc *MemoryCache) ItemCount() int {
	return mc.cache.ItemCount()
}

func (mc *MemoryCache) record(hit bool) {
	metrics.RecordCacheLookup(hit)
	_, _, ratio := mc.Stats()
	metrics.UpdateCacheHitRatio(ratio)
}

func clone(r *models.SimulationResult) *models.SimulationResult {
	copied := *r
	copied.Histogram = append([]int64(nil), r.Histogram...)
	return &copied
}
