// Package testutil starts throwaway PostgreSQL containers for integration tests.
package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"warzone-bot/internal/pkg/db"
)

// DockerAvailable checks if Docker is available and running.
func DockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// NewPostgres starts a migrated PostgreSQL container and returns a pool on it.
// The test is skipped when Docker is not available. Cleanup is registered on t.
func NewPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if !DockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("warzone"),
		postgres.WithUsername("warzone"),
		postgres.WithPassword("warzone"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})
	return pool
}
