package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/pkg/postgres"
)

var (
	testDB     *pgxpool.Pool
	testDBErr  error
	testDBOnce sync.Once
)

// SetupTestDatabase connects to TEST_POSTGRES_DSN, applies migrations and
// empties every table. The test is skipped when the variable is unset.
func SetupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	testDBOnce.Do(func() {
		if testDBErr = postgres.UpMigrations(dsn); testDBErr != nil {
			return
		}

		testDB, testDBErr = pgxpool.New(context.Background(), dsn)
	})
	require.NoError(t, testDBErr)

	CleanupDatabase(t, testDB)

	return testDB
}

func CleanupDatabase(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"verification_tokens",
		"refresh_tokens",
		"users",
	}

	for _, table := range tables {
		_, err := db.Exec(ctx, "DELETE FROM "+table)
		if err != nil {
			t.Logf("Warning: failed to cleanup table %s: %v", table, err)
		}
	}
}
