package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/ngrelay/internal/db"
)

func (c *sqliteClient) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	if err := c.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM blocklist WHERE user_id = ?", userID); err != nil {
		return false, fmt.Errorf("failed to check blocklist for %d: %w", userID, err)
	}
	return count > 0, nil
}

func (c *sqliteClient) Block(ctx context.Context, userID int64, blockedAt time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO blocklist (user_id, blocked_at)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`
	if _, err := c.db.ExecContext(ctx, query, userID, blockedAt.UTC()); err != nil {
		return fmt.Errorf("failed to block %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) Unblock(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, "DELETE FROM blocklist WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to unblock %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) ListBlocked(ctx context.Context) ([]*db.BlocklistEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entries := make([]*db.BlocklistEntry, 0)
	query := "SELECT user_id, blocked_at FROM blocklist ORDER BY blocked_at, user_id"
	if err := c.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list blocklist: %w", err)
	}
	return entries, nil
}
