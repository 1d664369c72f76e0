package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"streambet/repository/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPolicyKey(t *testing.T) {
	assert.Equal(t, "bet:abc", BetPolicy.Key("abc"))
	assert.Equal(t, "chat:abc", ChatPolicy.Key("abc"))
	assert.Equal(t, int64(5), BetPolicy.Limit)
	assert.Equal(t, int64(20), ChatPolicy.Limit)
}

func TestFixedWindowLimiter_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	// nothing listens on this port
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	t.Run("fail open", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, true)
		allowed, err := limiter.Hit(ctx, "bet:user", 5, time.Minute)
		assert.Error(t, err)
		assert.True(t, allowed)
	})

	t.Run("fail closed", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, false)
		allowed, err := limiter.Hit(ctx, "bet:user", 5, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})
}

func TestFixedWindowLimiter_Redis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	client := testutil.SetupTestRedis(t)
	base := time.Unix(1_700_000_040, 0) // start of a 60s bucket

	t.Run("allows up to limit within a window", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, false)
		limiter.now = fixedClock(base)

		for i := 0; i < 5; i++ {
			allowed, err := limiter.Allow(ctx, BetPolicy, "user-1")
			require.NoError(t, err)
			assert.True(t, allowed, "hit %d should be allowed", i+1)
		}

		allowed, err := limiter.Allow(ctx, BetPolicy, "user-1")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("sets expiry of window plus one second", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, false)
		limiter.now = fixedClock(base)

		_, err := limiter.Hit(ctx, "ttl-check", 1, time.Minute)
		require.NoError(t, err)

		bucket := base.Unix() / 60
		ttl, err := client.TTL(ctx, fmt.Sprintf("rl:ttl-check:%d", bucket)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Second)
		assert.LessOrEqual(t, ttl, 61*time.Second)
	})

	t.Run("new window resets the count", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, false)
		limiter.now = fixedClock(base)

		allowed, err := limiter.Hit(ctx, "reset", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, err = limiter.Hit(ctx, "reset", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		limiter.now = fixedClock(base.Add(time.Minute))
		allowed, err = limiter.Hit(ctx, "reset", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("identities are independent", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, false)
		limiter.now = fixedClock(base)

		allowed, err := limiter.Allow(ctx, ChatPolicy, "a")
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, err = limiter.Allow(ctx, BetPolicy, "a")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("concurrent hits never exceed limit", func(t *testing.T) {
		limiter := NewFixedWindowLimiter(client, false)
		limiter.now = fixedClock(base)

		var allowedCount int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				allowed, err := limiter.Hit(ctx, "burst", 10, time.Minute)
				if err == nil && allowed {
					atomic.AddInt64(&allowedCount, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(10), allowedCount)
	})
}
