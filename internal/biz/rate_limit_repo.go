package biz

import (
	"context"
	"time"
)

// RateWindowRepo stores the per-user sliding windows of request timestamps.
// Following Kratos v2 DDD architecture, the interface lives in biz and the
// implementations (memory, Redis) in data. Every method is atomic per user.
type RateWindowRepo interface {
	// Count drops timestamps before since and returns how many remain.
	Count(ctx context.Context, userID int64, since time.Time) (int, error)
	// Append records a request at at.
	Append(ctx context.Context, userID int64, at time.Time) error
	// CheckAndRecord prunes before since, then appends at only when fewer
	// than limit timestamps remain. It reports whether the append happened.
	CheckAndRecord(ctx context.Context, userID int64, at, since time.Time, limit int) (bool, error)
	// Cleanup forgets users whose newest timestamp is before since.
	Cleanup(ctx context.Context, since time.Time) (int, error)
}
