package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstUpToCapacity(t *testing.T) {
	rl := newRateLimiter(5)
	defer rl.Close()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.tryAcquire(), "token %d should be available", i)
	}
	assert.False(t, rl.tryAcquire())
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	rl := newRateLimiter(1)
	defer rl.Close()

	require.NoError(t, rl.wait(context.Background()))

	// Bucket is empty; a short deadline should fail rather than hang.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := rl.wait(ctx)
	require.Error(t, err)
}

func TestRateLimiterDefaultsCapacity(t *testing.T) {
	rl := newRateLimiter(0)
	defer rl.Close()
	assert.Equal(t, 60, rl.capacity)
}
