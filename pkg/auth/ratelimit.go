package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether a key may proceed under a sliding window
type RateLimiter interface {
	// Allow records an attempt for key. When denied, retryAfter tells the
	// caller when the oldest attempt leaves the window.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// MemoryRateLimiter keeps a sliding log of attempts per key. The number of
// tracked keys is bounded by an LRU cache.
type MemoryRateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	logs *lru.Cache[string, []time.Time]
}

// NewMemoryRateLimiter allows limit attempts per window for each key
func NewMemoryRateLimiter(limit int, window time.Duration, maxKeys int) (*MemoryRateLimiter, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	logs, err := lru.New[string, []time.Time](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit cache: %w", err)
	}
	return &MemoryRateLimiter{limit: limit, window: window, now: time.Now, logs: logs}, nil
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	attempts, _ := l.logs.Get(key)
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.limit {
		l.logs.Add(key, kept)
		return false, kept[0].Add(l.window).Sub(now), nil
	}
	l.logs.Add(key, append(kept, now))
	return true, 0, nil
}

// slidingWindowScript trims the window, then adds the attempt if there is
// room. Returns {allowed, retryAfterMillis}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, 0}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, tonumber(oldest[2]) + window - now}
`)

// RedisRateLimiter shares the sliding window between instances through a
// sorted set per key
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter allows limit attempts per window for each key
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "kbgraph:ratelimit:",
		now:    time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	nowMs := l.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.prefix + key},
		nowMs, l.window.Milliseconds(), l.limit, fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply: %v", res)
	}
	if res[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(res[1]) * time.Millisecond, nil
}
