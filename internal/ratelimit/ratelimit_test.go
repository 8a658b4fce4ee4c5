package ratelimit_test

import (
	"context"
	"os"
	"testing"
	"time"

	"campusflow/internal/ratelimit"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live Redis named by TEST_REDIS_ADDR.
func newLimiter(t *testing.T) *ratelimit.RateLimiter {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return ratelimit.NewRateLimiter(client)
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	rl := newLimiter(t)
	key := uuid.NewString()

	for range 3 {
		require.NoError(t, rl.Allow(ctx, ratelimit.OperationRegister, key, 3, time.Minute))
	}
	assert.ErrorIs(t, rl.Allow(ctx, ratelimit.OperationRegister, key, 3, time.Minute), ratelimit.ErrTooManyAttempts)

	// Operations count separately.
	assert.NoError(t, rl.Allow(ctx, ratelimit.OperationCheckIn, key, 3, time.Minute))

	require.NoError(t, rl.ResetAttempts(ctx, ratelimit.OperationRegister, key))
	assert.NoError(t, rl.Allow(ctx, ratelimit.OperationRegister, key, 3, time.Minute))
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	rl := newLimiter(t)
	key := uuid.NewString()

	require.NoError(t, rl.Allow(ctx, ratelimit.OperationCheckIn, key, 1, time.Second))
	assert.ErrorIs(t, rl.Allow(ctx, ratelimit.OperationCheckIn, key, 1, time.Second), ratelimit.ErrTooManyAttempts)

	time.Sleep(1500 * time.Millisecond)
	assert.NoError(t, rl.Allow(ctx, ratelimit.OperationCheckIn, key, 1, time.Second))
}
