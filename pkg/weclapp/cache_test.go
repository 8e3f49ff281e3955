package weclapp_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveEntry(data string) *weclapp.CacheEntry {
	return &weclapp.CacheEntry{
		Data:       []byte(data),
		StatusCode: http.StatusOK,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(10)
	ctx := context.Background()

	err := cache.Set(ctx, "key1", liveEntry(`{"result":[]}`))
	require.NoError(t, err)

	retrieved, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":[]}`, string(retrieved.Data))
	assert.Equal(t, http.StatusOK, retrieved.StatusCode)
	assert.True(t, cache.Has(ctx, "key1"))
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(10)

	_, err := cache.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, weclapp.ErrCacheMiss)
	assert.False(t, cache.Has(context.Background(), "nonexistent"))
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(10)
	ctx := context.Background()

	entry := &weclapp.CacheEntry{
		Data:      []byte("stale"),
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	require.NoError(t, cache.Set(ctx, "key1", entry))
	assert.False(t, cache.Has(ctx, "key1"))

	_, err := cache.Get(ctx, "key1")
	require.ErrorIs(t, err, weclapp.ErrCacheEntryExpired)

	// Expired entries are dropped on read.
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_Delete(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", liveEntry("data")))
	require.NoError(t, cache.Delete(ctx, "key1"))
	require.NoError(t, cache.Delete(ctx, "key1"))

	assert.False(t, cache.Has(ctx, "key1"))
}

func TestMemoryCache_Clear(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(10)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, key, liveEntry(key)))
	}

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", liveEntry("a")))
	require.NoError(t, cache.Set(ctx, "b", liveEntry("b")))

	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "c", liveEntry("c")))

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, "a"))
	assert.False(t, cache.Has(ctx, "b"))
	assert.True(t, cache.Has(ctx, "c"))
}

func TestMemoryCache_OverwriteKeepsSize(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", liveEntry("old")))
	require.NoError(t, cache.Set(ctx, "a", liveEntry("new")))

	entry, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "new", string(entry.Data))
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	cache := weclapp.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "live", liveEntry("live")))
	require.NoError(t, cache.Set(ctx, "stale", &weclapp.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))

	cache.Cleanup()

	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Has(ctx, "live"))
}

func TestMemoryCache_StartCleanup(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := weclapp.NewMemoryCache(10)
	require.NoError(t, cache.Set(ctx, "stale", &weclapp.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))

	cache.StartCleanup(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return cache.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCacheEntry_Expired(t *testing.T) {
	t.Parallel()

	assert.False(t, (&weclapp.CacheEntry{}).Expired())
	assert.False(t, liveEntry("x").Expired())
	assert.True(t, (&weclapp.CacheEntry{ExpiresAt: time.Now().Add(-time.Minute)}).Expired())
}

func TestCacheManager_GetCacheKey(t *testing.T) {
	t.Parallel()

	manager := weclapp.NewCacheManager(nil, nil)

	first := manager.GetCacheKey(http.MethodGet, "/article", url.Values{"b": {"2"}, "a": {"1"}})
	second := manager.GetCacheKey(http.MethodGet, "/article", url.Values{"a": {"1"}, "b": {"2"}})

	assert.Equal(t, first, second)
	assert.Equal(t, "GET:/article:a=1&b=2", first)
	assert.Equal(t, "GET:/article", manager.GetCacheKey(http.MethodGet, "/article", nil))
	assert.NotEqual(t, first, manager.GetCacheKey(http.MethodGet, "/article/count", url.Values{"a": {"1"}, "b": {"2"}}))
}

func TestCacheManager_Stats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := weclapp.NewCacheManager(weclapp.NewMemoryCache(10), &weclapp.CacheOptions{TTL: time.Minute})

	_, err := manager.Get(ctx, "k")
	require.Error(t, err)

	require.NoError(t, manager.Set(ctx, "k", http.StatusOK, []byte("v")))

	entry, err := manager.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), entry.Data)
	assert.WithinDuration(t, entry.CreatedAt.Add(time.Minute), entry.ExpiresAt, time.Millisecond)

	require.NoError(t, manager.Invalidate(ctx))

	_, err = manager.Get(ctx, "k")
	require.ErrorIs(t, err, weclapp.ErrCacheMiss)

	stats := manager.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Invalidations)
	assert.InDelta(t, 1.0/3.0, stats.GetHitRate(), 0.0001)
}

func TestCacheStats_GetHitRateWithoutLookups(t *testing.T) {
	t.Parallel()

	assert.Zero(t, (&weclapp.CacheStats{}).GetHitRate())
}

func TestCachingPolicy_ShouldCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   *weclapp.CachingPolicy
		method   string
		path     string
		status   int
		expected bool
	}{
		{"get ok", weclapp.DefaultCachingPolicy(), http.MethodGet, "/article", http.StatusOK, true},
		{"post", weclapp.DefaultCachingPolicy(), http.MethodPost, "/article", http.StatusOK, false},
		{"not found", weclapp.DefaultCachingPolicy(), http.MethodGet, "/article/id/1", http.StatusNotFound, false},
		{"excluded", &weclapp.CachingPolicy{ExcludePaths: []string{"/user"}}, http.MethodGet, "/user", http.StatusOK, false},
		{"included", &weclapp.CachingPolicy{IncludePaths: []string{"/unit"}}, http.MethodGet, "/unit", http.StatusOK, true},
		{"not included", &weclapp.CachingPolicy{IncludePaths: []string{"/unit"}}, http.MethodGet, "/article", http.StatusOK, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.policy.ShouldCache(tt.method, tt.path, tt.status))
		})
	}
}
