package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"

	"github.com/nightgig/platform/auth/internal/entity"
)

// RegisterFailedLogin runs as a single UPDATE so concurrent failures for the
// same account never lose an increment.
func (r *Repository) RegisterFailedLogin(
	ctx context.Context, userID uuid.UUID, maxAttempts int, lockFor time.Duration, now time.Time,
) (entity.AccountSecurityState, error) {
	q := `
	UPDATE users SET
		failed_login_attempts = CASE
			WHEN locked_until IS NOT NULL AND locked_until <= $2::timestamptz THEN 1
			ELSE failed_login_attempts + 1
		END,
		locked_until = CASE
			WHEN locked_until IS NOT NULL AND locked_until > $2::timestamptz THEN locked_until
			WHEN locked_until IS NOT NULL AND locked_until <= $2::timestamptz AND 1 >= $3::int THEN $4::timestamptz
			WHEN locked_until IS NULL AND failed_login_attempts + 1 >= $3::int THEN $4::timestamptz
			ELSE NULL
		END,
		updated_at = $2::timestamptz
	WHERE id = $1
	RETURNING id, failed_login_attempts, locked_until`

	return scanState(r.db.QueryRow(ctx, q, userID, now, maxAttempts, now.Add(lockFor)))
}

func (r *Repository) RegisterSuccessfulLogin(
	ctx context.Context, userID uuid.UUID, now time.Time,
) (entity.AccountSecurityState, error) {
	q := `
	UPDATE users SET
		failed_login_attempts = 0,
		locked_until = NULL,
		last_login_at = $2,
		updated_at = $2
	WHERE id = $1 AND (locked_until IS NULL OR locked_until <= $2)
	RETURNING id, failed_login_attempts, locked_until`

	state, err := scanState(r.db.QueryRow(ctx, q, userID, now))
	if !errors.Is(err, entity.ErrNotFound) {
		return state, err
	}

	// locked concurrently, or the account is gone
	q = `SELECT id, failed_login_attempts, locked_until FROM users WHERE id = $1`

	return scanState(r.db.QueryRow(ctx, q, userID))
}

func (r *Repository) ClearLockout(ctx context.Context, userID uuid.UUID) error {
	q := `UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, q, userID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func scanState(row pgx.Row) (entity.AccountSecurityState, error) {
	var state entity.AccountSecurityState

	err := row.Scan(&state.UserID, &state.FailedLoginAttempts, &state.LockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.AccountSecurityState{}, entity.ErrNotFound
		}

		return entity.AccountSecurityState{}, err
	}

	return state, nil
}
