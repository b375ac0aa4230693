package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryCache(t *testing.T, maxEntries int) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(&Options{DefaultTTL: time.Minute, MaxEntries: maxEntries})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_Missing(t *testing.T) {
	c := newTestMemoryCache(t, 100)

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryCache_DeleteAndExists(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"), "deleting twice is fine")

	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	ok, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_GetWithTTL(t *testing.T) {
	ctx := context.Background()

	c := newTestMemoryCache(t, 100)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))

	_, ttl, err := c.GetWithTTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	forever := NewMemoryCache(&Options{MaxEntries: 10})
	defer forever.Close()
	require.NoError(t, forever.Set(ctx, "k", []byte("v"), 0))

	_, ttl, err = forever.GetWithTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c := newTestMemoryCache(t, 3)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), 0))
	}

	// touch "a" so "b" becomes the least recently used
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "d", []byte("d"), 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	for _, k := range []string{"a", "c", "d"} {
		_, err := c.Get(ctx, k)
		assert.NoError(t, err, k)
	}
}

func TestMemoryCache_OverwriteDoesNotEvict(t *testing.T) {
	c := newTestMemoryCache(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "a", []byte("3"), 0))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)

	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	for _, k := range []string{"solve:1", "solve:2", "other:1"} {
		require.NoError(t, c.Set(ctx, k, []byte("v"), 0))
	}

	n, err := c.DeleteByPattern(ctx, "solve:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := c.Exists(ctx, "other:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCache_Stats(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1234"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("56"), 0))
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "missing")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalKeys)
	assert.Equal(t, int64(6), stats.MemoryBytes)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.Equal(t, BackendMemory, stats.Backend)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := newTestMemoryCache(t, 100)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Clear(ctx))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalKeys)
	assert.Zero(t, stats.MemoryBytes)
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheClosed)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheClosed)
	_, err = c.Stats(ctx)
	assert.ErrorIs(t, err, ErrCacheClosed)
}

func TestMemoryCache_JanitorPurges(t *testing.T) {
	c := NewMemoryCache(&Options{MaxEntries: 10, CleanupInterval: 10 * time.Millisecond})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 5*time.Millisecond))

	assert.Eventually(t, func() bool {
		stats, err := c.Stats(ctx)
		return err == nil && stats.TotalKeys == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := newTestMemoryCache(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*100+j)%80)
				_ = c.Set(ctx, key, []byte(key), 0)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.TotalKeys, int64(50))
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*", "anything", true},
		{"solve:*", "solve:abc", true},
		{"solve:*", "other:abc", false},
		{"*:abc", "solve:abc", true},
		{"so*bc", "solve:abc", true},
		{"ab*ba", "aba", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.key))
		})
	}
}
