// Package ratelimit implements fixed-window counters in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTooManyAttempts = errors.New("too many attempts, please try again later")

const (
	OperationRegister = "register"
	OperationCheckIn  = "check_in"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redis *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis: redis,
	}
}

// Allow counts one attempt of operation by key and fails once more than max
// attempts fall in the current window.
func (r *RateLimiter) Allow(ctx context.Context, operation, key string, max int64, window time.Duration) error {
	redisKey := fmt.Sprintf("%s_attempts:%s", operation, key)

	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: failed to increment %s: %w", redisKey, err)
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, redisKey, window).Err(); err != nil {
			return fmt.Errorf("ratelimit: failed to set expiry on %s: %w", redisKey, err)
		}
	}

	if count > max {
		return ErrTooManyAttempts
	}

	return nil
}

func (r *RateLimiter) ResetAttempts(ctx context.Context, operation, key string) error {
	redisKey := fmt.Sprintf("%s_attempts:%s", operation, key)
	return r.redis.Del(ctx, redisKey).Err()
}
