package generation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphic-ai/genflow/providers"
)

func TestCacheKey(t *testing.T) {
	base := CacheKey("p1", "prompt", "system", 0.7, 100)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base, CacheKey("p1", "prompt", "system", 0.7, 100))
	})

	t.Run("every field participates", func(t *testing.T) {
		assert.NotEqual(t, base, CacheKey("p2", "prompt", "system", 0.7, 100))
		assert.NotEqual(t, base, CacheKey("p1", "other", "system", 0.7, 100))
		assert.NotEqual(t, base, CacheKey("p1", "prompt", "other", 0.7, 100))
		assert.NotEqual(t, base, CacheKey("p1", "prompt", "system", 0.8, 100))
		assert.NotEqual(t, base, CacheKey("p1", "prompt", "system", 0.7, 101))
	})

	t.Run("absent system prompt equals empty string", func(t *testing.T) {
		assert.Equal(t,
			CacheKey("p1", "prompt", "", 0.7, 100),
			CacheKey("p1", "prompt", "", 0.7, 100))
		assert.NotEqual(t, base, CacheKey("p1", "prompt", "", 0.7, 100))
	})
}

func TestResponseCache_GetSet(t *testing.T) {
	cache := NewResponseCache(10, time.Minute)
	usage := providers.Usage{InputTokens: 3, OutputTokens: 5}

	assert.Nil(t, cache.Get("k1"))

	cache.Set("k1", "hello", usage)
	hit := cache.Get("k1")
	require.NotNil(t, hit)
	assert.Equal(t, "hello", hit.Text)
	assert.Equal(t, usage, hit.Usage)
	assert.False(t, hit.StoredAt.IsZero())

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestResponseCache_LRUEviction(t *testing.T) {
	cache := NewResponseCache(5, time.Minute)
	for i := 1; i <= 5; i++ {
		cache.Set(fmt.Sprintf("k%d", i), "v", providers.Usage{})
	}

	// Reading k1 promotes it, so k2 becomes the eviction candidate.
	require.NotNil(t, cache.Get("k1"))
	cache.Set("k6", "v", providers.Usage{})

	assert.Nil(t, cache.Get("k2"))
	assert.NotNil(t, cache.Get("k1"))
	assert.NotNil(t, cache.Get("k6"))
	assert.Equal(t, 5, cache.Len())
}

func TestResponseCache_SetResetsRecency(t *testing.T) {
	cache := NewResponseCache(2, time.Minute)
	cache.Set("k1", "v1", providers.Usage{})
	cache.Set("k2", "v2", providers.Usage{})

	// Rewriting k1 makes k2 the least recently used.
	cache.Set("k1", "v1b", providers.Usage{})
	cache.Set("k3", "v3", providers.Usage{})

	assert.Nil(t, cache.Get("k2"))
	hit := cache.Get("k1")
	require.NotNil(t, hit)
	assert.Equal(t, "v1b", hit.Text)
}

func TestResponseCache_TTL(t *testing.T) {
	cache := NewResponseCache(10, 50*time.Millisecond)
	cache.Set("k1", "v", providers.Usage{})

	require.NotNil(t, cache.Get("k1"))
	time.Sleep(80 * time.Millisecond)
	assert.Nil(t, cache.Get("k1"))
	assert.Equal(t, 0, cache.Len())
}

func TestResponseCache_Has(t *testing.T) {
	cache := NewResponseCache(2, time.Minute)
	cache.Set("k1", "v", providers.Usage{})
	cache.Set("k2", "v", providers.Usage{})

	// Has must not promote: k1 stays the eviction candidate.
	assert.True(t, cache.Has("k1"))
	assert.False(t, cache.Has("missing"))

	cache.Set("k3", "v", providers.Usage{})
	assert.False(t, cache.Has("k1"))
	assert.True(t, cache.Has("k2"))
}

func TestResponseCache_PurgeExpired(t *testing.T) {
	cache := NewResponseCache(10, 50*time.Millisecond)
	cache.Set("old1", "v", providers.Usage{})
	cache.Set("old2", "v", providers.Usage{})
	time.Sleep(80 * time.Millisecond)
	cache.Set("fresh", "v", providers.Usage{})

	removed := cache.PurgeExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Has("fresh"))
}

func TestResponseCache_Clear(t *testing.T) {
	cache := NewResponseCache(10, time.Minute)
	cache.Set("k1", "v", providers.Usage{})
	cache.Set("k2", "v", providers.Usage{})

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	assert.Nil(t, cache.Get("k1"))
}
