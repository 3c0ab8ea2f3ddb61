// Package middleware provides the inbound HTTP middleware: request logging
// and webhook authentication.
package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// RequestIDHeader carries a caller-supplied request id.
const RequestIDHeader = "X-Request-ID"

// Logging returns a middleware that attaches a request context and logs each
// request with its status and latency.
//
// Example output:
//
//	🟢 POST /v1/commands - 200 (542ms) | RequestID: mgrn0zfqda
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				operation string
				ip        string
				userAgent string
				requestID string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				method = operation
				path = operation

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")
					requestID = httpReq.Header.Get(RequestIDHeader)
				}
			}
			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, 0, operation)

			reply, err := handler(ctx, req)

			logger.RequestWithContext(ctx, method, path, statusOf(err), time.Since(startTime).Milliseconds(),
				"ip", ip,
				"user_agent", userAgent,
			)

			return reply, err
		}
	}
}

// extractClientIP prefers X-Real-IP, then the first X-Forwarded-For entry,
// then RemoteAddr.
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return req.RemoteAddr
}

// statusOf maps err to the HTTP status kratos will encode.
func statusOf(err error) int {
	if err == nil {
		return 200
	}
	return int(errors.FromError(err).Code)
}
