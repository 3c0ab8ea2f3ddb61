package biz

import (
	"context"
	"time"

	"RelayBot/internal/conf"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	DefaultRateLimit  = 20
	DefaultRateWindow = 60 * time.Second
)

// RateLimiterUseCase applies a per-user sliding window limit.
// Repository failures degrade to "allowed" with a warning.
type RateLimiterUseCase struct {
	repo   RateWindowRepo
	limit  int
	window time.Duration
	now    func() time.Time
	logger *pkglog.LogHelper
}

// NewRateLimiterUseCase creates a new rate limiter use case.
func NewRateLimiterUseCase(repo RateWindowRepo, c *conf.Limits, logger log.Logger) *RateLimiterUseCase {
	limit, window := DefaultRateLimit, DefaultRateWindow
	if c != nil {
		if c.RatePerWindow > 0 {
			limit = c.RatePerWindow
		}
		if c.RateWindow > 0 {
			window = c.RateWindow
		}
	}
	return &RateLimiterUseCase{
		repo:   repo,
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: pkglog.NewLogHelper(log.With(logger, "module", "biz/rate_limiter")),
	}
}

// Limit returns the number of requests allowed per window.
func (uc *RateLimiterUseCase) Limit() int {
	return uc.limit
}

// Window returns the sliding window length.
func (uc *RateLimiterUseCase) Window() time.Duration {
	return uc.window
}

// Check reports whether userID may issue another request. It does not record.
func (uc *RateLimiterUseCase) Check(ctx context.Context, userID int64) bool {
	count, err := uc.repo.Count(ctx, userID, uc.now().Add(-uc.window))
	if err != nil {
		uc.logger.Warnf("rate window read failed for user %d: %v (request allowed)", userID, err)
		return true
	}
	if count >= uc.limit {
		uc.logger.RateLimit("rate limit reached", "user_id", userID, "current", count, "limit", uc.limit)
		return false
	}
	return true
}

// Record appends a request for userID at the current time.
func (uc *RateLimiterUseCase) Record(ctx context.Context, userID int64) {
	if err := uc.repo.Append(ctx, userID, uc.now()); err != nil {
		uc.logger.Warnf("rate window append failed for user %d: %v", userID, err)
	}
}

// CheckAndRecord checks and, when allowed, records in one atomic step.
func (uc *RateLimiterUseCase) CheckAndRecord(ctx context.Context, userID int64) bool {
	now := uc.now()
	allowed, err := uc.repo.CheckAndRecord(ctx, userID, now, now.Add(-uc.window), uc.limit)
	if err != nil {
		uc.logger.Warnf("rate window update failed for user %d: %v (request allowed)", userID, err)
		return true
	}
	if !allowed {
		uc.logger.RateLimit("rate limit exceeded", "user_id", userID, "limit", uc.limit, "window", uc.window.String())
	}
	return allowed
}

// Cleanup drops windows that hold only expired timestamps.
func (uc *RateLimiterUseCase) Cleanup(ctx context.Context) (int, error) {
	return uc.repo.Cleanup(ctx, uc.now().Add(-uc.window))
}
