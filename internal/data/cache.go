package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes for Redis-held state.
const (
	// CacheKeyCircuit is the prefix for circuit entries: circuit:{service}
	CacheKeyCircuit = "circuit"
	// CacheKeyRate is the prefix for rate windows: rate:{user_id}
	CacheKeyRate = "rate"
)

// ErrCacheNotFound is returned when a cache key does not exist
var ErrCacheNotFound = errors.New("cache: key not found")

// errNoRedis is returned by every cache call when Redis is not configured.
var errNoRedis = errors.New("cache: redis client is nil")

// CacheClient stores JSON values in Redis.
type CacheClient interface {
	// Get deserializes the value under key into dest.
	// Returns ErrCacheNotFound if key doesn't exist.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value as JSON with the given TTL. Zero TTL means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Keys lists keys matching pattern using SCAN.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

type redisCache struct {
	client *redis.Client
}

// NewCacheClient creates a Redis-based cache client.
// With a nil client every operation fails with an error.
func NewCacheClient(rdb *redis.Client) CacheClient {
	return &redisCache{
		client: rdb,
	}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return errNoRedis
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache: failed to unmarshal value for key %s: %w", key, err)
	}

	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return errNoRedis
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal value for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}

	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, errNoRedis
	}

	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache: failed to delete key %s: %w", key, err)
	}

	return n > 0, nil
}

func (c *redisCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	if c.client == nil {
		return nil, errNoRedis
	}

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("cache: failed to scan %s: %w", pattern, err)
	}

	return keys, nil
}

// BuildCacheKey joins prefix and parts with ':'.
//   - BuildCacheKey(CacheKeyCircuit, "openweathermap") -> "circuit:openweathermap"
//   - BuildCacheKey(CacheKeyRate, "42") -> "rate:42"
func BuildCacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
