package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}

	l, err := NewRedisLimiter(&Config{
		Requests:      3,
		Window:        time.Minute,
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_TEST_PASSWORD"),
		KeyPrefix:     "islandflow-test:ratelimit:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	ctx := context.Background()
	key := "redis-limiter"
	require.NoError(t, l.Reset(ctx, key))
	t.Cleanup(func() { _ = l.Reset(context.Background(), key) })

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := l.Info(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, &LimitInfo{Limit: 3, Remaining: 0}, info)
}
