package log

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// slowCallThreshold marks outbound calls that deserve a warning.
const slowCallThreshold = 2 * time.Second

// LogHelper extends log.Helper with typed methods. Each method adds a
// "type" field that EmojiConsoleEncoder turns into a prefix.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper wraps logger.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func withType(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	return append(allKvs, "type", logType)
}

// Startup logs a lifecycle event (🚀).
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "startup", kvs)...)
}

// Success logs a completed operation (✅).
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "success", kvs)...)
}

// RateLimit logs a rejected or degraded rate check (🚦).
func (h *LogHelper) RateLimit(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "rate_limit", kvs)...)
}

// Circuit logs a circuit state change (🔌).
func (h *LogHelper) Circuit(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "circuit", kvs)...)
}

// Redis logs a Redis operation (📦).
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "redis", kvs)...)
}

// Scheduler logs periodic maintenance (🎯).
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "scheduler", kvs)...)
}

// Delivery logs a failed reply delivery (📨).
func (h *LogHelper) Delivery(ctx context.Context, msg string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	allKvs := withType(fmt.Sprintf("[%s] %s", reqCtx.RequestID, msg), "delivery", kvs)
	allKvs = append(allKvs, "request_id", reqCtx.RequestID, "user_id", reqCtx.UserID)
	h.Warnw(allKvs...)
}

// Command logs the outcome of a command invocation (💬).
func (h *LogHelper) Command(ctx context.Context, outcome string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	elapsed := GetElapsedTime(ctx)

	msg := fmt.Sprintf("[%s] /%s from user %d - %s (%dms)",
		reqCtx.RequestID, reqCtx.Command, reqCtx.UserID, outcome, elapsed)

	allKvs := withType(msg, "command", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"user_id", reqCtx.UserID,
		"command", reqCtx.Command,
		"outcome", outcome,
		"duration_ms", elapsed,
	)
	h.Infow(allKvs...)
}

// APICall logs one outbound attempt (🔗, or a status colour when status > 0).
// Slow calls additionally produce a warning.
func (h *LogHelper) APICall(ctx context.Context, service, endpoint string, attempt, status int, duration time.Duration, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	durationMs := duration.Milliseconds()

	msg := fmt.Sprintf("[%s] %s %s attempt %d - %d (%dms)",
		reqCtx.RequestID, service, endpoint, attempt, status, durationMs)

	allKvs := withType(msg, "api_call", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"service", service,
		"endpoint", endpoint,
		"attempt", attempt,
		"duration_ms", durationMs,
	)
	if status > 0 {
		allKvs = append(allKvs, "status", status)
	}
	h.Infow(allKvs...)

	if duration > slowCallThreshold {
		h.SlowRequest(ctx, service, endpoint, durationMs, slowCallThreshold.Milliseconds())
	}
}

// SlowRequest logs a call that exceeded threshold milliseconds (🐌).
func (h *LogHelper) SlowRequest(ctx context.Context, service, endpoint string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, service, endpoint, duration, threshold)

	allKvs := withType(msg, "slow_request", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"service", service,
		"endpoint", endpoint,
		"duration_ms", duration,
		"threshold_ms", threshold,
	)
	h.Warnw(allKvs...)
}

// RequestWithContext logs an inbound HTTP request (🌐 or status colour).
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := withType(msg, "request", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}
