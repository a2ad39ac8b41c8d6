package repository_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/suite"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/internal/repository"
)

type TokenRepositoryTestSuite struct {
	suite.Suite
	users  *repository.Repository
	repo   *repository.RefreshTokenRepository
	verify *repository.VerificationTokenRepository
	userID uuid.UUID
}

func (ts *TokenRepositoryTestSuite) SetupTest() {
	db := repository.SetupTestDatabase(ts.T())
	ts.users = repository.New(db)
	ts.repo = repository.NewRefreshTokenRepository(db)
	ts.verify = repository.NewVerificationTokenRepository(db)

	ts.userID = uuid.Must(uuid.NewV4())
	now := time.Now().UTC()

	ts.Require().NoError(ts.users.CreateUser(context.Background(), entity.User{
		ID:        ts.userID,
		Email:     ts.userID.String() + "@example.com",
		Name:      "Token Owner",
		Role:      rbac.DJ,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestTokenRepositoryTestSuite(t *testing.T) { //nolint:paralleltest
	suite.Run(t, new(TokenRepositoryTestSuite))
}

func (ts *TokenRepositoryTestSuite) save(id string, expiresAt time.Time) {
	err := ts.repo.SaveRefreshToken(context.Background(), entity.RefreshToken{
		ID:        id,
		UserID:    ts.userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	ts.Require().NoError(err)
}

func (ts *TokenRepositoryTestSuite) TestSaveRefreshToken() {
	id := uuid.Must(uuid.NewV4()).String()
	ts.save(id, time.Now().Add(24*time.Hour))

	err := ts.repo.SaveRefreshToken(context.Background(), entity.RefreshToken{
		ID:        id,
		UserID:    ts.userID,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	})
	ts.Require().ErrorIs(err, entity.ErrAlreadyExists)
}

func (ts *TokenRepositoryTestSuite) TestConsumeRefreshToken() {
	ctx := context.Background()
	now := time.Now()

	ts.Run("existing_token", func() {
		id := uuid.Must(uuid.NewV4()).String()
		ts.save(id, now.Add(24*time.Hour))

		token, err := ts.repo.ConsumeRefreshToken(ctx, id, now)
		ts.Require().NoError(err)
		ts.Require().Equal(ts.userID, token.UserID)

		_, err = ts.repo.ConsumeRefreshToken(ctx, id, now)
		ts.Require().ErrorIs(err, entity.ErrNotFound)
	})

	ts.Run("non_existing_token", func() {
		_, err := ts.repo.ConsumeRefreshToken(ctx, "non_existing_token", now)
		ts.Require().ErrorIs(err, entity.ErrNotFound)
	})

	ts.Run("expired_token", func() {
		id := uuid.Must(uuid.NewV4()).String()
		ts.save(id, now.Add(-time.Hour))

		_, err := ts.repo.ConsumeRefreshToken(ctx, id, now)
		ts.Require().ErrorIs(err, entity.ErrNotFound)
	})
}

func (ts *TokenRepositoryTestSuite) TestDeleteRefreshTokensByUserID() {
	ctx := context.Background()
	now := time.Now()

	ts.save("a-"+uuid.Must(uuid.NewV4()).String(), now.Add(time.Hour))
	ts.save("b-"+uuid.Must(uuid.NewV4()).String(), now.Add(time.Hour))

	ids, err := ts.repo.ActiveRefreshTokenIDs(ctx, ts.userID, now)
	ts.Require().NoError(err)
	ts.Require().Len(ids, 2)

	ts.Require().NoError(ts.repo.DeleteRefreshTokensByUserID(ctx, ts.userID))

	ids, err = ts.repo.ActiveRefreshTokenIDs(ctx, ts.userID, now)
	ts.Require().NoError(err)
	ts.Require().Empty(ids)
}

func (ts *TokenRepositoryTestSuite) TestCleanExpiredRefreshTokens() {
	ctx := context.Background()
	now := time.Now()

	live := uuid.Must(uuid.NewV4()).String()
	ts.save(live, now.Add(time.Hour))
	ts.save(uuid.Must(uuid.NewV4()).String(), now.Add(-time.Hour))

	ts.Require().NoError(ts.repo.CleanExpiredRefreshTokens(ctx, now))

	ids, err := ts.repo.ActiveRefreshTokenIDs(ctx, ts.userID, now.Add(-2*time.Hour))
	ts.Require().NoError(err)
	ts.Require().Equal([]string{live}, ids)
}

func (ts *TokenRepositoryTestSuite) TestConsumeVerificationToken() {
	ctx := context.Background()
	now := time.Now().UTC()

	token := entity.VerificationToken{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    ts.userID,
		Purpose:   entity.VerificationPurposePasswordReset,
		TokenHash: strings.Repeat("ab", 32),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	ts.Require().NoError(ts.verify.SaveVerificationToken(ctx, token))

	_, err := ts.verify.ConsumeVerificationToken(ctx, token.TokenHash, entity.VerificationPurposeEmailVerify, now)
	ts.Require().ErrorIs(err, entity.ErrNotFound, "purpose must match")

	got, err := ts.verify.ConsumeVerificationToken(ctx, token.TokenHash, entity.VerificationPurposePasswordReset, now)
	ts.Require().NoError(err)
	ts.Require().Equal(ts.userID, got.UserID)

	_, err = ts.verify.ConsumeVerificationToken(ctx, token.TokenHash, entity.VerificationPurposePasswordReset, now)
	ts.Require().ErrorIs(err, entity.ErrNotFound, "single use")
}
