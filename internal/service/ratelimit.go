package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nightgig/platform/auth/internal/entity"
)

// WindowStore counts hits in fixed windows. Hit must be atomic per key.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter throttles requests per source address. It is a best-effort
// throttle, independent of account lockout.
type RateLimiter struct {
	store  WindowStore
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(store WindowStore, scope string, limit int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}

	return &RateLimiter{
		store:  store,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    now,
	}
}

// Allow records one request from address. When the store fails the request
// is allowed and the error returned for logging.
func (l *RateLimiter) Allow(ctx context.Context, address string) (RateDecision, error) {
	now := l.now()

	count, resetAt, err := l.store.Hit(ctx, l.scope+":"+address, l.window, now)
	if err != nil {
		return RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: now.Add(l.window)},
			fmt.Errorf("rate limit store: %w", err)
	}

	return RateDecision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		ResetAt:   resetAt,
	}, nil
}

func (d RateDecision) RetryAfter(now time.Time) time.Duration {
	return max(d.ResetAt.Sub(now), 0)
}

func (d RateDecision) Err(now time.Time) error {
	if d.Allowed {
		return nil
	}

	return &entity.RateLimitedError{RetryAfter: d.RetryAfter(now), Limit: d.Limit}
}

func (l *RateLimiter) Now() time.Time { return l.now() }
