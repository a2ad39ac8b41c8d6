package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/entity"
)

// AccountStateRepository mutates lockout counters atomically per account.
type AccountStateRepository interface {
	// RegisterFailedLogin increments the counter and sets the lock when the
	// counter reaches maxAttempts. An expired lock restarts the counter.
	RegisterFailedLogin(
		ctx context.Context, userID uuid.UUID, maxAttempts int, lockFor time.Duration, now time.Time,
	) (entity.AccountSecurityState, error)
	// RegisterSuccessfulLogin resets the counter unless the account is locked
	// at now, and returns the resulting state.
	RegisterSuccessfulLogin(ctx context.Context, userID uuid.UUID, now time.Time) (entity.AccountSecurityState, error)
	ClearLockout(ctx context.Context, userID uuid.UUID) error
}

// LoginPolicy is the per-account lockout state machine. It is the only writer
// of failed attempt counters and lock timestamps.
type LoginPolicy struct {
	repo        AccountStateRepository
	unknown     WindowStore
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

func NewLoginPolicy(repo AccountStateRepository, maxAttempts int, lockout time.Duration, now func() time.Time) *LoginPolicy {
	if now == nil {
		now = time.Now
	}

	return &LoginPolicy{
		repo:        repo,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         now,
	}
}

// WithUnknownAccounts counts failures against addresses without an account in
// store, so their responses follow the same countdown as real accounts.
func (p *LoginPolicy) WithUnknownAccounts(store WindowStore) *LoginPolicy {
	p.unknown = store
	return p
}

func (p *LoginPolicy) MaxAttempts() int { return p.maxAttempts }

// Check refuses a locked account before any password work is done.
func (p *LoginPolicy) Check(state entity.AccountSecurityState) error {
	now := p.now()
	if state.LockedAt(now) {
		return lockedError(*state.LockedUntil, now)
	}

	return nil
}

// RecordFailure counts one failed attempt and returns the attempts left.
// The failure that reaches the limit returns *entity.LockedError.
func (p *LoginPolicy) RecordFailure(ctx context.Context, userID uuid.UUID) (int, error) {
	now := p.now()

	state, err := p.repo.RegisterFailedLogin(ctx, userID, p.maxAttempts, p.lockout, now)
	if err != nil {
		return 0, fmt.Errorf("register failed login: %w", err)
	}

	if state.LockedAt(now) {
		return 0, lockedError(*state.LockedUntil, now)
	}

	return max(p.maxAttempts-state.FailedLoginAttempts, 0), nil
}

// RecordUnknownFailure mirrors RecordFailure for a login address with no
// account behind it. key identifies the address. Without a store, or when the
// store fails, it reports what a fresh account would have left.
func (p *LoginPolicy) RecordUnknownFailure(ctx context.Context, key string) (int, error) {
	fresh := max(p.maxAttempts-1, 0)
	if p.unknown == nil {
		return fresh, nil
	}

	now := p.now()

	count, resetAt, err := p.unknown.Hit(ctx, "login:unknown:"+key, p.lockout, now)
	if err != nil {
		slog.WarnContext(ctx, "unknown account counter unavailable", "error", err)
		return fresh, nil
	}

	switch {
	case count == p.maxAttempts:
		return 0, lockedError(now.Add(p.lockout), now)
	case count > p.maxAttempts:
		return 0, lockedError(resetAt, now)
	}

	return p.maxAttempts - count, nil
}

// RecordSuccess resets the counter. It fails with *entity.LockedError if a
// concurrent attempt locked the account after Check.
func (p *LoginPolicy) RecordSuccess(ctx context.Context, userID uuid.UUID) error {
	now := p.now()

	state, err := p.repo.RegisterSuccessfulLogin(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("register successful login: %w", err)
	}

	if state.LockedAt(now) {
		return lockedError(*state.LockedUntil, now)
	}

	return nil
}

// Unlock clears lockout state after the owner proved control of the account
// out of band, e.g. through a password reset.
func (p *LoginPolicy) Unlock(ctx context.Context, userID uuid.UUID) error {
	if err := p.repo.ClearLockout(ctx, userID); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}

	return nil
}

func lockedError(until, now time.Time) *entity.LockedError {
	return &entity.LockedError{
		LockedUntil: until,
		RetryAfter:  until.Sub(now),
	}
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
