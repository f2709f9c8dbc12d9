package contracts

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter keyed by caller-chosen strings.
type RateLimiter interface {
	// Allow increments the key's window counter and reports whether the call
	// is within limit. Backend failures fail open.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
