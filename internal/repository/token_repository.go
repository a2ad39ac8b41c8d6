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

type RefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepository(db *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) SaveRefreshToken(ctx context.Context, token entity.RefreshToken) error {
	q := `INSERT INTO refresh_tokens (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, q, token.ID, token.UserID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrAlreadyExists
		}

		return err
	}

	return nil
}

// ConsumeRefreshToken deletes the row and returns it only if it had not
// expired. Of two concurrent callers exactly one gets the row.
func (r *RefreshTokenRepository) ConsumeRefreshToken(ctx context.Context, id string, now time.Time) (entity.RefreshToken, error) {
	q := `
	DELETE FROM refresh_tokens
	WHERE id = $1
	RETURNING id, user_id, expires_at, created_at`

	var token entity.RefreshToken

	err := r.db.QueryRow(ctx, q, id).Scan(&token.ID, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.RefreshToken{}, entity.ErrNotFound
		}

		return entity.RefreshToken{}, err
	}

	if !now.Before(token.ExpiresAt) {
		return entity.RefreshToken{}, entity.ErrNotFound
	}

	return token, nil
}

func (r *RefreshTokenRepository) DeleteRefreshToken(ctx context.Context, id string) error {
	q := `DELETE FROM refresh_tokens WHERE id = $1`

	_, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *RefreshTokenRepository) DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error {
	q := `DELETE FROM refresh_tokens WHERE user_id = $1`

	_, err := r.db.Exec(ctx, q, userID)
	if err != nil {
		return err
	}

	return nil
}

func (r *RefreshTokenRepository) CleanExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	q := `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	_, err := r.db.Exec(ctx, q, now)
	if err != nil {
		return err
	}

	return nil
}

func (r *RefreshTokenRepository) ActiveRefreshTokenIDs(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error) {
	var ids []string

	q := `
	SELECT id
	FROM refresh_tokens
	WHERE user_id = $1
	AND expires_at > $2
	ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
