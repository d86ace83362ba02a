package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/config"
)

// tokenBucketScript refills the bucket stored under KEYS[1] by whole
// intervals, then takes one token if available. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RateLimiter is a Redis-backed token bucket keyed by client IP and route.
// Redis failures let the request through.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	rdb    redis.Scripter
	now    func() time.Time
	logger logging.Logger
}

// NewRateLimiter returns nil when limiting is disabled or rdb is nil; a nil
// *RateLimiter passes every request.
func NewRateLimiter(cfg config.RateLimitConfig, rdb redis.Scripter, l logging.Logger) *RateLimiter {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &RateLimiter{cfg: cfg, rdb: rdb, now: time.Now, logger: l.With("module", "ratelimit")}
}

type takeResult struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

func (r *RateLimiter) take(ctx context.Context, key string) (takeResult, error) {
	args := []any{
		r.now().UnixMilli(),
		r.cfg.Capacity,
		r.cfg.RefillInterval.Milliseconds(),
		int64(r.cfg.TTL / time.Second),
	}

	vals, err := tokenBucketScript.Run(ctx, r.rdb, []string{key}, args...).Int64Slice()
	if err != nil {
		return takeResult{}, err
	}
	if len(vals) != 3 {
		return takeResult{}, fmt.Errorf("unexpected script result: %v", vals)
	}

	return takeResult{
		allowed:    vals[0] == 1,
		remaining:  vals[1],
		retryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

func (r *RateLimiter) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{r.cfg.Prefix, "ip", ip, "route", c.Request().Method + " " + c.Path()}, ":")
}

// Middleware enforces the bucket and sets X-RateLimit-* headers.
func (r *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	if r == nil {
		return next
	}
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		key := r.key(c)

		res, err := r.take(ctx, key)
		if err != nil {
			r.logger.Warn(ctx, "rate limiter unavailable", "key", key, "error", err)
			return next(c)
		}

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(r.cfg.Capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))

		if !res.allowed {
			secs := int(math.Ceil(res.retryAfter.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			r.logger.Debug(ctx, "rate limited", "key", key, "retry_after", res.retryAfter)
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}
		return next(c)
	}
}
