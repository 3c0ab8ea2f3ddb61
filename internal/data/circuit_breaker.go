package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"RelayBot/internal/conf"
	"RelayBot/internal/metrics"
	"RelayBot/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// NewCircuitStore selects the shared Redis circuit store when Redis is
// available and the in-memory store otherwise.
func NewCircuitStore(d *Data, c *conf.Limits, logger log.Logger) httpclient.CircuitStore {
	if !d.HasRedis() {
		return httpclient.NewMemoryCircuitStore()
	}
	cooldown := httpclient.DefaultCooldown
	if c != nil && c.CircuitCooldown > 0 {
		cooldown = c.CircuitCooldown
	}
	return NewRedisCircuitStore(d.GetRedisClient(), d.GetCache(), cooldown, logger)
}

// NewCircuitBreaker creates the breaker shared by every outbound service.
// Trips and resets feed both the metrics and the circuit event log.
func NewCircuitBreaker(store httpclient.CircuitStore, c *conf.Limits, events *CircuitEventLogger, logger log.Logger) *httpclient.CircuitBreaker {
	var cooldown time.Duration
	if c != nil {
		cooldown = c.CircuitCooldown
	}
	observer := httpclient.Observers{metrics.NewHTTPObserver(), events}
	return httpclient.NewCircuitBreaker(store, cooldown, observer, logger)
}

// circuitRecord is the JSON stored under circuit:{service}.
type circuitRecord struct {
	Tripped     bool  `json:"tripped"`
	TrippedAtUs int64 `json:"tripped_at_us"`
}

func (r circuitRecord) state() httpclient.CircuitState {
	return httpclient.CircuitState{Tripped: r.Tripped, TrippedAt: time.UnixMicro(r.TrippedAtUs)}
}

// deleteIfScript removes KEYS[1] only if it still holds ARGV[1].
var deleteIfScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisCircuitStore implements httpclient.CircuitStore in Redis so replicas
// share one breaker. Entries carry a TTL of twice the cooldown; an entry that
// expires unobserved simply reads as closed.
type RedisCircuitStore struct {
	rdb    *redis.Client
	cache  CacheClient
	ttl    time.Duration
	logger *log.Helper
}

// NewRedisCircuitStore creates a Redis circuit store.
func NewRedisCircuitStore(rdb *redis.Client, cache CacheClient, cooldown time.Duration, logger log.Logger) *RedisCircuitStore {
	if cooldown <= 0 {
		cooldown = httpclient.DefaultCooldown
	}
	return &RedisCircuitStore{
		rdb:    rdb,
		cache:  cache,
		ttl:    2 * cooldown,
		logger: log.NewHelper(log.With(logger, "module", "data/circuit")),
	}
}

func (s *RedisCircuitStore) Load(ctx context.Context, service string) (httpclient.CircuitState, bool, error) {
	var rec circuitRecord
	if err := s.cache.Get(ctx, circuitKey(service), &rec); err != nil {
		if errors.Is(err, ErrCacheNotFound) {
			return httpclient.CircuitState{}, false, nil
		}
		return httpclient.CircuitState{}, false, err
	}
	return rec.state(), true, nil
}

func (s *RedisCircuitStore) Save(ctx context.Context, service string, state httpclient.CircuitState) error {
	rec := circuitRecord{Tripped: state.Tripped, TrippedAtUs: state.TrippedAt.UnixMicro()}
	if err := s.cache.Set(ctx, circuitKey(service), rec, s.ttl); err != nil {
		return err
	}
	s.logger.Debugw("msg", "circuit entry saved", "service", service, "ttl", s.ttl.String())
	return nil
}

func (s *RedisCircuitStore) Delete(ctx context.Context, service string) (bool, error) {
	return s.cache.Delete(ctx, circuitKey(service))
}

func (s *RedisCircuitStore) DeleteIf(ctx context.Context, service string, trippedAt time.Time) (bool, error) {
	expected, err := json.Marshal(circuitRecord{Tripped: true, TrippedAtUs: trippedAt.UnixMicro()})
	if err != nil {
		return false, fmt.Errorf("failed to encode circuit entry: %w", err)
	}
	n, err := deleteIfScript.Run(ctx, s.rdb, []string{circuitKey(service)}, string(expected)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to clear circuit entry: %w", err)
	}
	return n > 0, nil
}

func (s *RedisCircuitStore) Snapshot(ctx context.Context) (map[string]httpclient.CircuitState, error) {
	prefix := CacheKeyCircuit + ":"
	keys, err := s.cache.Keys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}

	out := make(map[string]httpclient.CircuitState, len(keys))
	for _, key := range keys {
		var rec circuitRecord
		if err := s.cache.Get(ctx, key, &rec); err != nil {
			if errors.Is(err, ErrCacheNotFound) {
				continue
			}
			return nil, err
		}
		out[strings.TrimPrefix(key, prefix)] = rec.state()
	}
	return out, nil
}

func circuitKey(service string) string {
	return BuildCacheKey(CacheKeyCircuit, service)
}
