package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nightgig/platform/auth/internal/entity"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, role, COALESCE(google_id, ''), email_verified,
	failed_login_attempts, locked_until, last_login_at, created_at, updated_at`

// Repository stores user accounts and their lockout state.
type Repository struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{
		db: pool,
	}
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUser(r.db.QueryRow(ctx, q, email))
}

func (r *Repository) UserByID(ctx context.Context, id uuid.UUID) (entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) CreateUser(ctx context.Context, user entity.User) error {
	q := `
	INSERT INTO users (id, email, name, password_hash, role, google_id, email_verified, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`

	_, err := r.db.Exec(
		ctx,
		q,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.GoogleID,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrAlreadyExists
		}

		return err
	}

	return nil
}

func (r *Repository) UpdateUser(ctx context.Context, id uuid.UUID, upd entity.UserUpdate) (entity.User, error) {
	if upd.Empty() {
		return r.UserByID(ctx, id)
	}

	stmt := sq.Update("users").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns).
		PlaceholderFormat(sq.Dollar)

	if upd.PasswordHash != nil {
		stmt = stmt.Set("password_hash", *upd.PasswordHash)
	}

	if upd.Role != nil {
		stmt = stmt.Set("role", string(*upd.Role))
	}

	if upd.Name != nil {
		stmt = stmt.Set("name", *upd.Name)
	}

	if upd.GoogleID != nil {
		stmt = stmt.Set("google_id", sq.Expr("NULLIF(?, '')", *upd.GoogleID))
	}

	if upd.EmailVerified != nil {
		stmt = stmt.Set("email_verified", *upd.EmailVerified)
	}

	sqlQuery, args, err := stmt.ToSql()
	if err != nil {
		return entity.User{}, fmt.Errorf("build update: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sqlQuery, args...))
	if err != nil && isUniqueViolation(err) {
		return entity.User{}, entity.ErrAlreadyExists
	}

	return user, err
}

func scanUser(row pgx.Row) (entity.User, error) {
	var user entity.User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.GoogleID,
		&user.EmailVerified,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.User{}, entity.ErrNotFound
		}

		return entity.User{}, err
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
