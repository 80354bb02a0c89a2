package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

const (
	rateLimitKeyPrefix = "dispatch:ratelimit:"
	rateLimitWindow    = time.Second
)

// RateLimiter implements domain.RateLimiter with a sliding window shared by
// every dispatcher instance that points at the same Redis.
type RateLimiter struct {
	client      *Client
	limitPerSec int
	now         func() time.Time
}

// NewRateLimiter creates a new RateLimiter
func NewRateLimiter(client *Client, limitPerSec int) *RateLimiter {
	return &RateLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		now:         time.Now,
	}
}

func rateLimitKey(channel domain.Channel) string {
	return rateLimitKeyPrefix + string(channel)
}

// Allow reports whether one more send on channel fits in the current window.
// An allowed send is recorded immediately.
func (r *RateLimiter) Allow(ctx context.Context, channel domain.Channel) (bool, error) {
	if r.limitPerSec <= 0 {
		return true, nil
	}

	key := rateLimitKey(channel)
	now := r.now()
	windowStart := now.Add(-rateLimitWindow)

	pipe := r.client.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if countCmd.Val() >= int64(r.limitPerSec) {
		return false, nil
	}

	// members must be unique, two sends can share a nanosecond timestamp
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	pipe = r.client.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, 2*rateLimitWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record send: %w", err)
	}

	return true, nil
}

// CurrentRate returns the number of sends recorded for channel in the last window
func (r *RateLimiter) CurrentRate(ctx context.Context, channel domain.Channel) (int64, error) {
	key := rateLimitKey(channel)
	windowStart := r.now().Add(-rateLimitWindow)

	pipe := r.client.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to get current rate: %w", err)
	}

	return countCmd.Val(), nil
}
