package db

import (
	"context"
	"time"
)

// Client is the persistent blocklist. Every method is a self-contained transaction.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	// IsBlocked reports whether userID has a blocklist entry.
	IsBlocked(ctx context.Context, userID int64) (bool, error)
	// Block inserts an entry; blocking an already blocked user is a no-op.
	Block(ctx context.Context, userID int64, blockedAt time.Time) error
	// Unblock deletes the entry, if any.
	Unblock(ctx context.Context, userID int64) error
	// ListBlocked returns every entry, oldest first.
	ListBlocked(ctx context.Context) ([]*BlocklistEntry, error)
}
