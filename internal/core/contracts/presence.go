package contracts

import (
	"context"
	"time"
)

// PresenceStore tracks which dispatchers are live per venture. Backed by a
// venture-keyed ZSET with TTL-based self cleaning.
type PresenceStore interface {
	// MarkOnline refreshes a dispatcher's presence for the venture.
	MarkOnline(ctx context.Context, ventureID, userID int64, ttl time.Duration) error
	// OnlineDispatchers returns user ids active within the presence window.
	OnlineDispatchers(ctx context.Context, ventureID int64) ([]int64, error)
	// MarkOffline drops one dispatcher immediately (clean disconnect).
	MarkOffline(ctx context.Context, ventureID, userID int64) error
}
