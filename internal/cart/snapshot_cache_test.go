package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCacheTest(t *testing.T) (*RedisSnapshotCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSnapshotCache(client, time.Hour), mr
}

func TestRedisSnapshotCache_Miss(t *testing.T) {
	cache, _ := setupRedisCacheTest(t)

	lines, err := cache.Load(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrSnapshotMiss)
	assert.Nil(t, lines)
}

func TestRedisSnapshotCache_SaveAndLoad(t *testing.T) {
	cache, mr := setupRedisCacheTest(t)
	ctx := context.Background()

	saved := []Line{
		{ProductID: "sku-1", Name: "Headphones", Price: decimal.RequireFromString("899"), Quantity: 2},
		{ProductID: "sku-2", Name: "Watch", Price: decimal.RequireFromString("499.50"), Quantity: 1},
	}
	require.NoError(t, cache.Save(ctx, "user-1", saved))

	assert.True(t, mr.Exists(snapshotKeyPrefix+"user-1"))
	assert.Equal(t, time.Hour, mr.TTL(snapshotKeyPrefix+"user-1"))

	loaded, err := cache.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "sku-1", loaded[0].ProductID)
	assert.Equal(t, 2, loaded[0].Quantity)
	assert.True(t, loaded[1].Price.Equal(decimal.RequireFromString("499.5")))
}

func TestRedisSnapshotCache_EmptyCart(t *testing.T) {
	cache, _ := setupRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "user-1", []Line{}))

	loaded, err := cache.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestRedisSnapshotCache_Expires(t *testing.T) {
	cache, mr := setupRedisCacheTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "user-1", []Line{{ProductID: "sku-1", Quantity: 1}}))
	mr.FastForward(2 * time.Hour)

	_, err := cache.Load(ctx, "user-1")
	assert.ErrorIs(t, err, ErrSnapshotMiss)
}

func TestRedisSnapshotCache_CorruptValue(t *testing.T) {
	cache, mr := setupRedisCacheTest(t)
	require.NoError(t, mr.Set(snapshotKeyPrefix+"user-1", "not json"))

	_, err := cache.Load(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotMiss)
}

func TestRedisSnapshotCache_ServerDown(t *testing.T) {
	cache, mr := setupRedisCacheTest(t)
	mr.Close()

	_, err := cache.Load(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotMiss)
}
