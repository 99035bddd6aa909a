package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startDatabase(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("relay_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func setupClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), startDatabase(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_ConvertsLegacyBlockDate(t *testing.T) {
	connStr := startDatabase(t)
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `CREATE TABLE blocklist (user_id BIGINT PRIMARY KEY, block_date TEXT)`)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `INSERT INTO blocklist (user_id, block_date) VALUES (555, '2025-03-01 09:15'), (556, NULL)`)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	client, err := NewClient(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	entries, err := client.ListBlocked(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(555), entries[0].UserID)
	assert.True(t, entries[0].BlockedAt.Equal(time.Date(2025, time.March, 1, 9, 15, 0, 0, time.UTC)), entries[0].BlockedAt)
	assert.Equal(t, int64(556), entries[1].UserID)

	require.NoError(t, client.Block(ctx, 557, time.Now()))
	blocked, err := client.IsBlocked(ctx, 557)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestClient_Blocklist(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()
	blockedAt := time.Date(2026, time.October, 16, 12, 30, 0, 0, time.UTC)

	t.Run("empty list", func(t *testing.T) {
		entries, err := client.ListBlocked(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("block is idempotent", func(t *testing.T) {
		require.NoError(t, client.Block(ctx, 555, blockedAt))
		require.NoError(t, client.Block(ctx, 555, blockedAt.Add(time.Hour)))

		entries, err := client.ListBlocked(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(555), entries[0].UserID)
		assert.True(t, entries[0].BlockedAt.Equal(blockedAt))

		blocked, err := client.IsBlocked(ctx, 555)
		require.NoError(t, err)
		assert.True(t, blocked)
	})

	t.Run("unblock absent is a no-op", func(t *testing.T) {
		require.NoError(t, client.Unblock(ctx, 404))
	})

	t.Run("unblock removes entry", func(t *testing.T) {
		require.NoError(t, client.Unblock(ctx, 555))

		blocked, err := client.IsBlocked(ctx, 555)
		require.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("migrations are reentrant", func(t *testing.T) {
		require.NoError(t, applyMigrations(client.pool.Config().ConnConfig))
	})
}
