package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the window counter and starts its expiry on the first
// hit. It returns the count and the remaining ttl in milliseconds.
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore keeps rate limit windows and revoked access tokens in redis, so
// every instance behind a balancer shares them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	res, err := hitScript.Run(ctx, r.client, []string{r.prefix + ":rl:" + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("hit window: %w", err)
	}

	if len(res) != 2 { //nolint:mnd
		return 0, time.Time{}, fmt.Errorf("hit window: unexpected reply %v", res)
	}

	return int(res[0]), now.Add(time.Duration(res[1]) * time.Millisecond), nil
}

func (r *RedisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl < time.Second {
		ttl = time.Second
	}

	err := r.client.Set(ctx, r.prefix+":deny:"+tokenID, 1, ttl).Err()
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (r *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.client.Get(ctx, r.prefix+":deny:"+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}

	return true, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
