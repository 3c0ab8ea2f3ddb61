package server

import (
	"context"

	"RelayBot/internal/conf"
	"RelayBot/internal/server/middleware"
	"RelayBot/internal/service"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation names used for middleware selection.
const (
	OperationDispatch = "/relaybot.v1.CommandService/Dispatch"
	OperationHealth   = "/relaybot.v1.CommandService/Health"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, commandService *service.CommandService, logger log.Logger) *http.Server {
	logHelper := pkglog.NewLogHelper(log.With(logger, "module", "server/http"))

	var secret string
	if c != nil && c.HTTP != nil {
		secret = c.HTTP.WebhookSecret
	}

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
			selector.Server(middleware.WebhookSecret(secret, logHelper)).
				Path(OperationDispatch).
				Build(),
		),
	}
	if c != nil && c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout > 0 {
			opts = append(opts, http.Timeout(c.HTTP.Timeout))
		}
	}
	srv := http.NewServer(opts...)

	registerCommandRoutes(srv, commandService)
	srv.Handle("/metrics", promhttp.Handler())

	return srv
}

func registerCommandRoutes(srv *http.Server, svc *service.CommandService) {
	r := srv.Route("/")
	r.POST("/v1/commands", dispatchHandler(svc))
	r.GET("/healthz", healthHandler(svc))
}

func dispatchHandler(svc *service.CommandService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.CommandRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationDispatch)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.Dispatch(ctx, req.(*service.CommandRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func healthHandler(svc *service.CommandService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationHealth)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.Health(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
