// Package ratelimit throttles generation requests per client with a Redis sliding window.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "genroute:rl:"

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter counts requests per key over a sliding window held in a Redis sorted set.
// Every failure to reach Redis lets the request through.
type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewLimiter creates a limiter. With a nil rdb every check passes.
func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

// slidingWindowScript trims entries older than the window, then admits the request if the
// remaining count is under the limit. It returns the count after the decision, 1 when
// admitted, and the score of the oldest entry still in the window (0 if none).
// KEYS[1] sorted set key; ARGV window start, now (unix micro), limit, TTL seconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
local allowed = 0

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    count = count + 1
    allowed = 1
end
redis.call('EXPIRE', key, ttl)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldest_score = 0
if oldest[2] then
    oldest_score = tonumber(oldest[2])
end
return {count, allowed, oldest_score}
`)

// Check admits or rejects one request for key, allowing limit requests per window.
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error) {
	now := l.now()
	if l.rdb == nil {
		return LimitResult{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(window)}, nil
	}

	res, err := slidingWindowScript.Run(ctx, l.rdb, []string{keyPrefix + key},
		now.Add(-window).UnixMicro(), now.UnixMicro(), limit, int64(window.Seconds())+1,
	).Int64Slice()
	if err != nil || len(res) != 3 {
		slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, nil
	}
	return windowResult(now, window, limit, res[0], res[1] == 1, res[2]), nil
}

// windowResult derives headers from a script reply. A rejected request may retry once the
// oldest entry leaves the window, never sooner than one second from now.
func windowResult(now time.Time, window time.Duration, limit, count int64, allowed bool, oldestMicro int64) LimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(window)
	if oldestMicro > 0 {
		resetAt = time.UnixMicro(oldestMicro).Add(window)
	}

	out := LimitResult{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}
	if !allowed {
		out.RetryAfter = resetAt.Sub(now)
		if out.RetryAfter < time.Second {
			out.RetryAfter = time.Second
		}
	}
	return out
}
