package httpx

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript counts one hit and returns the count with the window's remaining
// milliseconds. Any key without a TTL gets one, so a counter can never
// outlive its window.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisLimiter is a fixed-window limiter shared by every replica pointing
// at the same Redis. Errors talking to Redis allow the request.
type RedisLimiter struct {
	client  redis.UniversalClient
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

// NewRedisLimiter wraps an existing client. prefix namespaces the keys.
func NewRedisLimiter(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		client:  client,
		logger:  logger,
		prefix:  prefix,
		timeout: 250 * time.Millisecond,
	}
}

// Allow counts the request against the current window for key. The window
// starts on the first hit and RequestsPerWindow hits are allowed inside it.
func (l *RedisLimiter) Allow(ctx context.Context, key string, cfg RateLimitConfig) Decision {
	if cfg.RequestsPerWindow <= 0 {
		return Decision{Allowed: true}
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	res, err := hitScript.Run(ctx, l.client, []string{l.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		l.logger.Error("redis rate limiter error", "op", "hit", "err", err)
		return Decision{Allowed: true}
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond

	if count <= int64(cfg.RequestsPerWindow) {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, RetryAfter: ttl}
}
