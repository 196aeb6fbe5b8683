package l2frames

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kitti.review/internal/kitti"
	"github.com/banshee-data/kitti.review/internal/testutil"
)

func stubLoad(calls *int) LoadFunc {
	return func(index int) (*Frame, error) {
		*calls++
		return &Frame{Index: index}, nil
	}
}

func TestFrameCache_EvictionOrder(t *testing.T) {
	c, err := NewFrameCache(DefaultCacheCapacity)
	require.NoError(t, err)

	var calls int
	for i := 1; i <= 33; i++ {
		_, err := c.GetOrLoad(i, stubLoad(&calls))
		require.NoError(t, err)
	}
	assert.Equal(t, 32, c.Len())
	assert.False(t, c.Contains(1), "key 1 should be evicted first")
	assert.True(t, c.Contains(2))

	_, err = c.GetOrLoad(34, stubLoad(&calls))
	require.NoError(t, err)
	assert.False(t, c.Contains(2), "key 2 should be evicted next")
	assert.True(t, c.Contains(3))
	assert.Equal(t, 32, c.Len())
	assert.Equal(t, uint64(2), c.Stats().Evictions)
}

func TestFrameCache_HitRefreshesRecency(t *testing.T) {
	c, err := NewFrameCache(3)
	require.NoError(t, err)

	var calls int
	for i := 0; i < 3; i++ {
		_, _ = c.GetOrLoad(i, stubLoad(&calls))
	}
	f, err := c.GetOrLoad(0, stubLoad(&calls))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, 3, calls, "hit must not call the loader")

	_, _ = c.GetOrLoad(3, stubLoad(&calls))
	assert.True(t, c.Contains(0))
	assert.False(t, c.Contains(1))
	assert.Equal(t, []int{2, 0, 3}, c.Keys())

	stats := c.Stats()
	assert.Equal(t, CacheStats{Hits: 1, Misses: 4, Evictions: 1, Len: 3, Capacity: 3}, stats)
}

func TestFrameCache_FailureLeavesCacheUnmodified(t *testing.T) {
	c, err := NewFrameCache(2)
	require.NoError(t, err)

	var calls int
	_, _ = c.GetOrLoad(0, stubLoad(&calls))
	_, _ = c.GetOrLoad(1, stubLoad(&calls))

	boom := errors.New("boom")
	_, err = c.GetOrLoad(2, func(int) (*Frame, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1}, c.Keys())
	assert.Equal(t, uint64(1), c.Stats().Failures)

	_, err = c.GetOrLoad(3, func(int) (*Frame, error) { return nil, nil })
	assert.Error(t, err)
	assert.False(t, c.Contains(3))
}

func TestFrameCache_WithLoader(t *testing.T) {
	d := testutil.NewDataset()
	d.AddFrame(t, 5, testutil.CameraCalib, testutil.EndToEndLabel, carCloud)
	l := newTestLoader(t, d, LoaderConfig{})

	c, err := NewFrameCache(DefaultCacheCapacity)
	require.NoError(t, err)

	f, err := c.GetOrLoad(5, l.LoadFrame)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Index)

	_, err = c.GetOrLoad(6, l.LoadFrame)
	assert.True(t, errors.Is(err, kitti.ErrNotFound), "err = %v", err)
	assert.Equal(t, 1, c.Len())

	cached, ok := c.Get(5)
	assert.True(t, ok)
	assert.Same(t, f, cached)
}

func TestNewFrameCache_InvalidCapacity(t *testing.T) {
	_, err := NewFrameCache(0)
	assert.Error(t, err)
}
