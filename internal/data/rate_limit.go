package data

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"RelayBot/internal/biz"
	"RelayBot/internal/conf"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultMaxTrackedUsers bounds the in-memory rate windows.
const DefaultMaxTrackedUsers = 10000

// NewRateWindowRepo selects the Redis window store when Redis is available
// and the in-memory store otherwise.
func NewRateWindowRepo(d *Data, c *conf.Limits, logger log.Logger) (biz.RateWindowRepo, error) {
	window := biz.DefaultRateWindow
	maxUsers := DefaultMaxTrackedUsers
	if c != nil {
		if c.RateWindow > 0 {
			window = c.RateWindow
		}
		if c.MaxTrackedUsers > 0 {
			maxUsers = c.MaxTrackedUsers
		}
	}

	if d.HasRedis() {
		return NewRedisRateWindowRepo(d.GetRedisClient(), window, logger), nil
	}
	return NewMemoryRateWindowRepo(maxUsers, logger)
}

// userWindow is one user's timestamps in ascending order. A removed window is
// marked dead so holders of a stale pointer look the user up again.
type userWindow struct {
	mu     sync.Mutex
	stamps []time.Time
	dead   bool
}

// prune drops timestamps before since. Caller holds w.mu.
func (w *userWindow) prune(since time.Time) {
	i := 0
	for i < len(w.stamps) && w.stamps[i].Before(since) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// MemoryRateWindowRepo implements biz.RateWindowRepo in process memory. The
// least recently used user is evicted once maxUsers windows are tracked.
type MemoryRateWindowRepo struct {
	mu      sync.Mutex
	windows *lru.Cache[int64, *userWindow]
	logger  *log.Helper
}

// NewMemoryRateWindowRepo creates an in-memory window store.
func NewMemoryRateWindowRepo(maxUsers int, logger log.Logger) (*MemoryRateWindowRepo, error) {
	if maxUsers <= 0 {
		maxUsers = DefaultMaxTrackedUsers
	}
	cache, err := lru.New[int64, *userWindow](maxUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate window cache: %w", err)
	}
	return &MemoryRateWindowRepo{
		windows: cache,
		logger:  log.NewHelper(log.With(logger, "module", "data/rate_limit")),
	}, nil
}

// withWindow runs fn with the user's window locked.
func (r *MemoryRateWindowRepo) withWindow(userID int64, fn func(w *userWindow)) {
	for {
		r.mu.Lock()
		w, ok := r.windows.Get(userID)
		if !ok {
			w = &userWindow{}
			r.windows.Add(userID, w)
		}
		r.mu.Unlock()

		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		fn(w)
		w.mu.Unlock()
		return
	}
}

func (r *MemoryRateWindowRepo) Count(_ context.Context, userID int64, since time.Time) (int, error) {
	var n int
	r.withWindow(userID, func(w *userWindow) {
		w.prune(since)
		n = len(w.stamps)
	})
	return n, nil
}

func (r *MemoryRateWindowRepo) Append(_ context.Context, userID int64, at time.Time) error {
	r.withWindow(userID, func(w *userWindow) {
		w.stamps = append(w.stamps, at)
	})
	return nil
}

func (r *MemoryRateWindowRepo) CheckAndRecord(_ context.Context, userID int64, at, since time.Time, limit int) (bool, error) {
	allowed := false
	r.withWindow(userID, func(w *userWindow) {
		w.prune(since)
		if len(w.stamps) < limit {
			w.stamps = append(w.stamps, at)
			allowed = true
		}
	})
	return allowed, nil
}

func (r *MemoryRateWindowRepo) Cleanup(_ context.Context, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, userID := range r.windows.Keys() {
		w, ok := r.windows.Peek(userID)
		if !ok {
			continue
		}
		w.mu.Lock()
		if len(w.stamps) == 0 || w.stamps[len(w.stamps)-1].Before(since) {
			w.dead = true
			r.windows.Remove(userID)
			removed++
		}
		w.mu.Unlock()
	}

	if removed > 0 {
		r.logger.Debugw("msg", "expired rate windows removed", "removed", removed, "tracked", r.windows.Len())
	}
	return removed, nil
}

// checkAndRecordScript prunes, counts and conditionally appends in one step.
// KEYS[1] window key; ARGV: since_us, at_us, member, limit, ttl_ms.
var checkAndRecordScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local n = redis.call('ZCARD', KEYS[1])
if n >= tonumber(ARGV[4]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// RedisRateWindowRepo implements biz.RateWindowRepo with one sorted set per
// user (rate:{user_id}) scored by microsecond timestamps. Keys expire one
// window after their newest entry, so Cleanup has nothing to do.
type RedisRateWindowRepo struct {
	rdb    *redis.Client
	window time.Duration
	logger *pkglog.LogHelper
}

// NewRedisRateWindowRepo creates a Redis window store.
func NewRedisRateWindowRepo(rdb *redis.Client, window time.Duration, logger log.Logger) *RedisRateWindowRepo {
	if window <= 0 {
		window = biz.DefaultRateWindow
	}
	return &RedisRateWindowRepo{
		rdb:    rdb,
		window: window,
		logger: pkglog.NewLogHelper(log.With(logger, "module", "data/rate_limit")),
	}
}

func (r *RedisRateWindowRepo) Count(ctx context.Context, userID int64, since time.Time) (int, error) {
	key := rateKey(userID)

	var card *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(since.UnixMicro(), 10))
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count rate window: %w", err)
	}
	return int(card.Val()), nil
}

func (r *RedisRateWindowRepo) Append(ctx context.Context, userID int64, at time.Time) error {
	key := rateKey(userID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMicro()), Member: windowMember(at)})
		pipe.PExpire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to rate window: %w", err)
	}
	return nil
}

func (r *RedisRateWindowRepo) CheckAndRecord(ctx context.Context, userID int64, at, since time.Time, limit int) (bool, error) {
	res, err := checkAndRecordScript.Run(ctx, r.rdb,
		[]string{rateKey(userID)},
		since.UnixMicro(),
		at.UnixMicro(),
		windowMember(at),
		limit,
		r.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to update rate window: %w", err)
	}

	r.logger.Redis("rate window checked", "user_id", userID, "allowed", res == 1)
	return res == 1, nil
}

func (r *RedisRateWindowRepo) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}

func rateKey(userID int64) string {
	return BuildCacheKey(CacheKeyRate, strconv.FormatInt(userID, 10))
}

// windowMember makes sorted set members unique across replicas.
func windowMember(at time.Time) string {
	return strconv.FormatInt(at.UnixMicro(), 10) + ":" + pkglog.GenerateRequestID()
}
