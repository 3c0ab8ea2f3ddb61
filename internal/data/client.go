package data

import (
	"RelayBot/internal/biz"
	"RelayBot/internal/conf"
	"RelayBot/internal/metrics"
	"RelayBot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

// NewHTTPClient creates the outbound client shared by the weather and joke
// repositories. The cleanup closes its connection pool.
func NewHTTPClient(c *conf.Clients, breaker *httpclient.CircuitBreaker, logger log.Logger) (*httpclient.Client, func()) {
	opts := httpclient.Options{MaxRetries: -1}
	if c != nil {
		opts.Timeout = c.Timeout
		opts.MaxRetries = c.MaxRetries
		opts.BackoffUnit = c.BackoffUnit
		opts.ProxyURL = c.ProxyURL
		opts.UserAgent = c.UserAgent
		opts.Pacing = make(map[string]float64)
		if c.Weather != nil && c.Weather.RateLimit > 0 {
			opts.Pacing[biz.WeatherServiceName] = c.Weather.RateLimit
		}
		if c.Joke != nil && c.Joke.RateLimit > 0 {
			opts.Pacing[biz.JokeServiceName] = c.Joke.RateLimit
		}
	}

	client := httpclient.NewClient(opts, breaker, metrics.NewHTTPObserver(), logger)
	cleanup := func() {
		log.NewHelper(logger).Info("closing outbound HTTP connection pool")
		client.Close()
	}
	return client, cleanup
}
