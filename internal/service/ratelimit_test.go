package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/repository"
	"github.com/nightgig/platform/auth/internal/service"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock()
	limiter := service.NewRateLimiter(repository.NewMemoryStore(clock.Now), "auth", 3, time.Minute, clock.Now)

	for i := range 3 {
		d, err := limiter.Allow(ctx, "10.1.1.1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 2-i, d.Remaining)
	}

	clock.Advance(20 * time.Second)

	d, err := limiter.Allow(ctx, "10.1.1.1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 40*time.Second, d.RetryAfter(clock.Now()))

	var limited *entity.RateLimitedError
	require.ErrorAs(t, d.Err(clock.Now()), &limited)
	require.Equal(t, 3, limited.Limit)

	d, err = limiter.Allow(ctx, "10.1.1.2")
	require.NoError(t, err)
	require.True(t, d.Allowed, "addresses are counted separately")

	clock.Advance(40 * time.Second)

	d, err = limiter.Allow(ctx, "10.1.1.1")
	require.NoError(t, err)
	require.True(t, d.Allowed, "window reset")
	require.NoError(t, d.Err(clock.Now()))
}

type brokenWindowStore struct{}

func (brokenWindowStore) Hit(context.Context, string, time.Duration, time.Time) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("redis: connection refused")
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	t.Parallel()

	limiter := service.NewRateLimiter(brokenWindowStore{}, "api", 1, time.Minute, nil)

	d, err := limiter.Allow(context.Background(), "10.1.1.1")
	require.Error(t, err)
	require.True(t, d.Allowed)
}
