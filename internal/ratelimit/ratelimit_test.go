package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterBurstThenDeny(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	// Other clients have their own budget.
	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)
}

func TestMemoryLimiterRefills(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	l.Allow(ctx, "k")
	l.Allow(ctx, "k")
	ok, _ := l.Allow(ctx, "k")
	require.False(t, ok)

	now = now.Add(31 * time.Second)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryLimiterSweepsIdleKeys(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	l.Allow(ctx, "old")
	now = now.Add(time.Hour)
	l.Allow(ctx, "new")

	_, stillThere := l.buckets["old"]
	assert.False(t, stillThere)
	assert.Len(t, l.buckets, 1)
}

func TestRedisLimiterReportsUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLimiter(client, 5, time.Minute)
	ok, err := l.Allow(context.Background(), "login:10.0.0.1")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "login:10.0.0.1")
}
