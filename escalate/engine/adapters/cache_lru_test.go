package adapters

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheBasicOperations(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(4)

	_, ok := cache.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k1", 0.42, 60))
	score, ok := cache.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, 0.42, score)

	require.NoError(t, cache.Set(ctx, "k1", 0.77, 60))
	score, ok = cache.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, 0.77, score)

	require.NoError(t, cache.Delete(ctx, "k1"))
	_, ok = cache.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestLRUCacheEviction(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(2)

	require.NoError(t, cache.Set(ctx, "a", 0.1, 60))
	require.NoError(t, cache.Set(ctx, "b", 0.2, 60))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, cache.Set(ctx, "c", 0.3, 60))

	_, ok = cache.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = cache.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = cache.Get(ctx, "c")
	assert.True(t, ok)
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(4)

	// A non-positive TTL is already in the past.
	require.NoError(t, cache.Set(ctx, "k", 0.5, -1))
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache := NewLRUCache(32)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%40)
				_ = cache.Set(ctx, key, float64(n)/10, 60)
				_, _ = cache.Get(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
