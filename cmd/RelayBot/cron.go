package main

import (
	"context"
	"fmt"
	"time"

	"RelayBot/internal/biz"
	"RelayBot/internal/conf"
	"RelayBot/pkg/httpclient"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

const (
	defaultJanitorSpec = "0 */5 * * * *"
	sweepTimeout       = 30 * time.Second
)

// Janitor periodically drops expired rate windows and clears circuits whose
// cooldown has passed. It runs as a kratos server so the app starts and
// stops it with the HTTP listener.
type Janitor struct {
	cron    *cron.Cron
	spec    string
	limiter *biz.RateLimiterUseCase
	breaker *httpclient.CircuitBreaker
	logger  *pkglog.LogHelper
}

// NewJanitor registers the sweep on c.JanitorSpec, a six-field cron
// expression with seconds.
func NewJanitor(c *conf.Limits, limiter *biz.RateLimiterUseCase, breaker *httpclient.CircuitBreaker, logger log.Logger) (*Janitor, error) {
	spec := defaultJanitorSpec
	if c != nil && c.JanitorSpec != "" {
		spec = c.JanitorSpec
	}

	j := &Janitor{
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		limiter: limiter,
		breaker: breaker,
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "janitor")),
	}
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		return nil, fmt.Errorf("failed to register janitor job %q: %w", spec, err)
	}
	return j, nil
}

// Start starts the cron scheduler.
func (j *Janitor) Start(context.Context) error {
	j.cron.Start()
	j.logger.Scheduler("janitor started", "spec", j.spec)
	return nil
}

// Stop stops the scheduler and waits for a running sweep, up to ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	j.logger.Scheduler("janitor stopped")
	return nil
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := j.limiter.Cleanup(ctx)
	if err != nil {
		j.logger.Errorw("msg", "rate window cleanup failed", "error", err)
	}

	open, err := j.breaker.OpenCircuits(ctx)
	if err != nil {
		j.logger.Errorw("msg", "circuit sweep failed", "error", err)
	}

	j.logger.Scheduler("janitor sweep finished", "windows_removed", removed, "open_circuits", open)
}
