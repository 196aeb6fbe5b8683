package l2frames

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/banshee-data/kitti.review/internal/lidar"
)

// DefaultCacheCapacity is the number of frames kept for navigation.
const DefaultCacheCapacity = 32

// LoadFunc produces the frame for index on a cache miss.
type LoadFunc func(index int) (*Frame, error)

// CacheStats is a snapshot of cache activity.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Failures  uint64 `json:"failures"`
	Len       int    `json:"len"`
	Capacity  int    `json:"capacity"`
}

// FrameCache maps frame indices to loaded frames with least-recently-used
// eviction. The recency list and the backing map live in one lru.Cache so
// they cannot drift. Entries are only removed by eviction.
type FrameCache struct {
	frames   *lru.Cache[int, *Frame]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	failures  atomic.Uint64
}

// NewFrameCache creates a cache holding at most capacity frames.
func NewFrameCache(capacity int) (*FrameCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("frame cache capacity must be positive, got %d", capacity)
	}
	c := &FrameCache{capacity: capacity}
	frames, err := lru.NewWithEvict(capacity, func(index int, _ *Frame) {
		c.evictions.Add(1)
		lidar.Tracef("[FrameCache] evicted frame %d", index)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create frame cache: %w", err)
	}
	c.frames = frames
	return c, nil
}

// GetOrLoad returns the cached frame for index, refreshing its recency, or
// calls load and caches the result. A failed load leaves the cache untouched
// and returns the error.
func (c *FrameCache) GetOrLoad(index int, load LoadFunc) (*Frame, error) {
	if f, ok := c.frames.Get(index); ok {
		c.hits.Add(1)
		return f, nil
	}
	c.misses.Add(1)

	f, err := load(index)
	if err != nil {
		c.failures.Add(1)
		return nil, err
	}
	if f == nil {
		c.failures.Add(1)
		return nil, fmt.Errorf("frame %d: loader returned no frame", index)
	}
	c.frames.Add(index, f)
	return f, nil
}

// Get returns a cached frame and refreshes its recency.
func (c *FrameCache) Get(index int) (*Frame, bool) {
	return c.frames.Get(index)
}

// Contains reports whether index is cached without touching recency.
func (c *FrameCache) Contains(index int) bool {
	return c.frames.Contains(index)
}

// Keys returns the cached indices from least to most recently used.
func (c *FrameCache) Keys() []int {
	return c.frames.Keys()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	return c.frames.Len()
}

// Capacity returns the maximum number of cached frames.
func (c *FrameCache) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of hit, miss, eviction and failure counters.
func (c *FrameCache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Failures:  c.failures.Load(),
		Len:       c.frames.Len(),
		Capacity:  c.capacity,
	}
}
