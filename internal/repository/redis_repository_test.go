package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/internal/repository"
)

func setupRedis(t *testing.T) *repository.RedisStore {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewRedisStore(client, "test:"+uuid.Must(uuid.NewV4()).String())
	require.NoError(t, store.Ping(context.Background()))

	return store
}

func TestRedisStore_Hit(t *testing.T) { //nolint:paralleltest
	store := setupRedis(t)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 3; i++ {
		count, resetAt, err := store.Hit(ctx, "10.0.0.1", time.Minute, now)
		require.NoError(t, err)
		require.Equal(t, i, count)
		require.WithinDuration(t, now.Add(time.Minute), resetAt, 2*time.Second)
	}
}

func TestRedisStore_Denylist(t *testing.T) { //nolint:paralleltest
	store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, revoked)
}
