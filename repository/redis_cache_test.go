package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()
	require.NoError(t, cache.Ping(ctx))

	_, ok, err := cache.Get(ctx, "calc:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "calc:abc", `{"monthly_installment":"470.73"}`, time.Minute))

	val, ok, err := cache.Get(ctx, "calc:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"monthly_installment":"470.73"}`, val)
	assert.True(t, mr.Exists(cacheKeyPrefix+"calc:abc"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "calc:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache := NewRedisCache(mr.Addr())
	t.Cleanup(func() { _ = cache.Close() })

	mr.Close()

	ctx := context.Background()
	assert.Error(t, cache.Ping(ctx))
	_, ok, err := cache.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMockCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCache()

	require.NoError(t, cache.Set(ctx, "k", "v", 0))
	val, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	cache.ForceError = errors.New("unavailable")
	_, _, err = cache.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "k", "v", 0))
}
