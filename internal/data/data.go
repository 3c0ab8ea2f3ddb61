// Package data provides data access layer implementations.
// It holds the optional Redis state backend and the outbound API repositories.
package data

import (
	"RelayBot/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewCacheClient,
	NewRateWindowRepo,
	NewCircuitStore,
	NewCircuitEventLogger,
	NewCircuitBreaker,
	NewHTTPClient,
	NewWeatherRepo,
	NewJokeRepo,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient is nil when state lives in process memory
	redisClient *redis.Client
	cache       CacheClient
}

// NewData creates a new Data instance.
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, cache CacheClient) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	if rdb == nil {
		helper.Info("using in-memory circuit and rate state")
	}

	d := &Data{
		redisClient: rdb,
		cache:       cache,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
	}

	return d, cleanup, nil
}

// HasRedis reports whether the shared Redis backend is available.
func (d *Data) HasRedis() bool {
	return d != nil && d.redisClient != nil
}

// GetCache returns the cache client for repository use.
func (d *Data) GetCache() CacheClient {
	return d.cache
}

// GetRedisClient returns the Redis client, or nil.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
