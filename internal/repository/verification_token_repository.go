package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nightgig/platform/auth/internal/entity"
)

type VerificationTokenRepository struct {
	db *pgxpool.Pool
}

func NewVerificationTokenRepository(db *pgxpool.Pool) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

func (r *VerificationTokenRepository) SaveVerificationToken(ctx context.Context, token entity.VerificationToken) error {
	q := `
	INSERT INTO verification_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, q, token.ID, token.UserID, token.Purpose, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrAlreadyExists
		}

		return err
	}

	return nil
}

func (r *VerificationTokenRepository) ConsumeVerificationToken(
	ctx context.Context, tokenHash string, purpose entity.VerificationPurpose, now time.Time,
) (entity.VerificationToken, error) {
	q := `
	DELETE FROM verification_tokens
	WHERE token_hash = $1 AND purpose = $2
	RETURNING id, user_id, purpose, token_hash, expires_at, created_at`

	var token entity.VerificationToken

	err := r.db.QueryRow(ctx, q, tokenHash, purpose).Scan(
		&token.ID,
		&token.UserID,
		&token.Purpose,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.VerificationToken{}, entity.ErrNotFound
		}

		return entity.VerificationToken{}, err
	}

	if token.ExpiredAt(now) {
		return entity.VerificationToken{}, entity.ErrNotFound
	}

	return token, nil
}

func (r *VerificationTokenRepository) DeleteVerificationTokens(
	ctx context.Context, userID uuid.UUID, purpose entity.VerificationPurpose,
) error {
	q := `DELETE FROM verification_tokens WHERE user_id = $1 AND purpose = $2`

	_, err := r.db.Exec(ctx, q, userID, purpose)
	if err != nil {
		return err
	}

	return nil
}

func (r *VerificationTokenRepository) CleanExpiredVerificationTokens(ctx context.Context, now time.Time) error {
	q := `DELETE FROM verification_tokens WHERE expires_at <= $1`

	_, err := r.db.Exec(ctx, q, now)
	if err != nil {
		return err
	}

	return nil
}
