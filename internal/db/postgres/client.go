package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngrelay/internal/db"
	"github.com/iamwavecut/ngrelay/resources"
)

const (
	maxConns        = 10
	maxConnIdleTime = 30 * time.Minute
)

// Client keeps the blocklist in PostgreSQL.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient connects to databaseURL, verifies the connection and applies pending migrations.
func NewClient(ctx context.Context, databaseURL string) (*Client, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(poolConfig.ConnConfig); err != nil {
		pool.Close()
		return nil, err
	}

	return &Client{pool: pool}, nil
}

func applyMigrations(connConfig *pgx.ConnConfig) error {
	sqlDB := stdlib.OpenDB(*connConfig)
	defer sqlDB.Close()

	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations/postgres",
	}
	n, err := migrate.Exec(sqlDB, "postgres", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.WithField("context", "postgres").Infof("applied %d migrations", n)
	}
	return nil
}

func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Client) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	var blocked bool
	err := c.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blocklist WHERE user_id = $1)`, userID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("failed to check blocklist for %d: %w", userID, err)
	}
	return blocked, nil
}

func (c *Client) Block(ctx context.Context, userID int64, blockedAt time.Time) error {
	query := `
		INSERT INTO blocklist (user_id, blocked_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := c.pool.Exec(ctx, query, userID, blockedAt.UTC()); err != nil {
		return fmt.Errorf("failed to block %d: %w", userID, err)
	}
	return nil
}

func (c *Client) Unblock(ctx context.Context, userID int64) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM blocklist WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to unblock %d: %w", userID, err)
	}
	return nil
}

func (c *Client) ListBlocked(ctx context.Context) ([]*db.BlocklistEntry, error) {
	rows, err := c.pool.Query(ctx, `SELECT user_id, blocked_at FROM blocklist ORDER BY blocked_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocklist: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[db.BlocklistEntry])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan blocklist: %w", err)
	}
	if entries == nil {
		entries = make([]*db.BlocklistEntry, 0)
	}
	return entries, nil
}
