package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Policy is a named fixed-window limit applied per identity
type Policy struct {
	Prefix string
	Limit  int64
	Window time.Duration
}

// Key returns the limiter key of an identity under this policy
func (p Policy) Key(identity string) string {
	return p.Prefix + ":" + identity
}

var (
	// BetPolicy gates wager placement per user
	BetPolicy = Policy{Prefix: "bet", Limit: 5, Window: 60 * time.Second}

	// ChatPolicy gates chat messages per user
	ChatPolicy = Policy{Prefix: "chat", Limit: 20, Window: 60 * time.Second}
)

// FixedWindowLimiter counts hits per key in fixed time buckets stored in Redis
type FixedWindowLimiter struct {
	client   redis.Cmdable
	failOpen bool
	now      func() time.Time
}

// NewFixedWindowLimiter creates a limiter. failOpen decides the answer when
// the counter store is unavailable.
func NewFixedWindowLimiter(client redis.Cmdable, failOpen bool) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client:   client,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// Hit increments the counter of key in the current window and reports whether
// the post-increment count is within limit. On a store failure the configured
// policy is returned together with the error.
func (l *FixedWindowLimiter) Hit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	windowSeconds := int64(window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	bucket := l.now().Unix() / windowSeconds
	counterKey := fmt.Sprintf("rl:%s:%d", key, bucket)

	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return l.failOpen, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// concurrent first hits may both set the expiry, which is harmless
	if count == 1 {
		ttl := time.Duration(windowSeconds+1) * time.Second
		if err := l.client.Expire(ctx, counterKey, ttl).Err(); err != nil {
			log.WithFields(log.Fields{
				"key":   counterKey,
				"error": err,
			}).Warn("Failed to set rate limit counter expiry")
		}
	}

	return count <= limit, nil
}

// Allow applies a policy to an identity
func (l *FixedWindowLimiter) Allow(ctx context.Context, policy Policy, identity string) (bool, error) {
	return l.Hit(ctx, policy.Key(identity), policy.Limit, policy.Window)
}

// Connect opens a Redis client from a redis:// URL and verifies it with PING
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
