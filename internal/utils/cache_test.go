package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)

	type payload struct {
		Balance float64 `json:"balance"`
	}
	require.NoError(t, SetCache(ctx, rdb, DashboardStatsKey, payload{Balance: 12.5}, time.Minute))

	var got payload
	found, err := GetCache(ctx, rdb, DashboardStatsKey, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 12.5, got.Balance)

	found, err = GetCache(ctx, rdb, DashboardTeamsKey, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)

	require.NoError(t, SetCache(ctx, rdb, DashboardStatsKey, 1, time.Minute))
	require.NoError(t, SetCache(ctx, rdb, DashboardTeamsKey, 2, time.Minute))
	require.NoError(t, SetCache(ctx, rdb, "users:public", 3, time.Minute))

	require.NoError(t, DeletePrefix(ctx, rdb, DashboardPrefix))

	var v int
	found, _ := GetCache(ctx, rdb, DashboardStatsKey, &v)
	assert.False(t, found)
	found, _ = GetCache(ctx, rdb, DashboardTeamsKey, &v)
	assert.False(t, found)
	found, _ = GetCache(ctx, rdb, "users:public", &v)
	assert.True(t, found)
}

func TestNilClientIsEmptyCache(t *testing.T) {
	ctx := context.Background()
	var v int
	found, err := GetCache(ctx, nil, "k", &v)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(ctx, nil, "k", 1, time.Minute))
	assert.NoError(t, DeletePrefix(ctx, nil, "k"))
}
