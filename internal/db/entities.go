package db

import "time"

// BlocklistEntry is a user denied relay service. UserID is unique across the blocklist.
type BlocklistEntry struct {
	UserID    int64     `db:"user_id"`
	BlockedAt time.Time `db:"blocked_at"`
}
