//go:build ignore
// +build ignore

// Prints one line per log type so the console encoder output can be checked
// by eye: go run test_logging.go
package main

import (
	"context"
	"time"

	"RelayBot/internal/conf"
	pkglog "RelayBot/pkg/log"
)

func main() {
	zapLogger, err := pkglog.NewZapLogger(&conf.Log{
		Level:  "debug",
		Format: "console",
		Env:    "development",
	})
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	helper := pkglog.NewLogHelper(pkglog.NewKratosAdapter(zapLogger))
	ctx := pkglog.WithRequestContext(context.Background(), pkglog.GenerateRequestID(), 42, "weather")

	println("=== log output ===\n")

	helper.Startup("RelayBot service starting", "version", "1.0.0", "http.addr", ":8080")
	helper.Redis("Redis connected", "addr", "localhost:6379")
	helper.Scheduler("janitor sweep finished", "windows_removed", 3)
	helper.APICall(ctx, "openweathermap", "/data/2.5/weather", 1, 200, 180*time.Millisecond)
	helper.APICall(ctx, "openweathermap", "/data/2.5/weather", 2, 502, 3*time.Second)
	helper.Circuit("circuit opened", "service", "openweathermap")
	helper.RateLimit("rate limit exceeded", "user_id", 42, "limit", 20)
	helper.Delivery(ctx, "failed to send message", "error", "can't parse entities")
	helper.Command(ctx, "ok", "username", "tester")
	helper.RequestWithContext(ctx, "POST", "/v1/commands", 200, 542, "ip", "192.168.1.100")
	helper.Success("weather data retrieved", "city", "Paris")

	println("\n=== done ===")
}
