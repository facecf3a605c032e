package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"go-gin-event-scheduler/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 1})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisAlertLedger(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	start := model.MustParseTimestamp("2024-12-01 09:00:00")
	first := NewRedisAlertLedger(rdb, time.Minute)
	second := NewRedisAlertLedger(rdb, time.Minute)
	key := first.key(42, start)
	require.NoError(t, rdb.Del(ctx, key).Err())
	t.Cleanup(func() { _ = rdb.Del(context.Background(), key).Err() })

	t.Run("OnlyOneClaimWins", func(t *testing.T) {
		ok, err := first.Claim(ctx, 42, start)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = second.Claim(ctx, 42, start)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReleaseByOtherOwnerKeepsClaim", func(t *testing.T) {
		require.NoError(t, second.Release(ctx, 42, start))
		exists, err := rdb.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})

	t.Run("ReleaseAllowsReclaim", func(t *testing.T) {
		require.NoError(t, first.Release(ctx, 42, start))
		ok, err := second.Claim(ctx, 42, start)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("RescheduledEventIsSeparate", func(t *testing.T) {
		moved := start.Add(time.Hour)
		t.Cleanup(func() { _ = rdb.Del(context.Background(), first.key(42, moved)).Err() })
		ok, err := first.Claim(ctx, 42, moved)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ClaimExpires", func(t *testing.T) {
		ttl, err := rdb.PTTL(ctx, key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})
}

func TestRedisAlertLedger_Key(t *testing.T) {
	l := &RedisAlertLedger{}
	assert.Equal(t, "alert:event:7:20241201T090000", l.key(7, model.MustParseTimestamp("2024-12-01T09:00:00")))
}
