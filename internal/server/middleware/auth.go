package middleware

import (
	"context"
	"crypto/subtle"

	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// SecretTokenHeader is the header the chat platform sets on webhook calls.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrInvalidSecret is returned when the webhook secret does not match.
var ErrInvalidSecret = errors.Unauthorized("INVALID_SECRET", "webhook secret token mismatch")

// WebhookSecret rejects requests whose secret token header does not equal
// secret. An empty secret disables the check.
func WebhookSecret(secret string, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		if secret == "" {
			return handler
		}
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			var token, ip string
			if tr, ok := transport.FromServerContext(ctx); ok {
				token = tr.RequestHeader().Get(SecretTokenHeader)
				if ht, ok := tr.(http.Transporter); ok {
					ip = extractClientIP(ht.Request())
				}
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				logger.Warnw("msg", "rejected webhook call with invalid secret",
					"request_id", pkglog.GetRequestID(ctx),
					"ip", ip,
					"token_present", token != "",
				)
				return nil, ErrInvalidSecret
			}
			return handler(ctx, req)
		}
	}
}
