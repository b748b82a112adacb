package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nearbuy/nearbuy-orders-service/internal/config"
)

// RedisRateLimiter implements a fixed-window rate limit in Redis, keyed by
// scope and client identifier with a TTL'd counter. Counters live in Redis
// rather than process memory so limits survive restarts and apply across
// instances.
type RedisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
	logger *slog.Logger
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter.
func NewRedisRateLimiter(client *redis.Client, cfg config.RateLimitConfig, logger *slog.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		window: cfg.Window,
		max:    cfg.MaxRequests,
		logger: logger.With(slog.String("component", "rate-limiter")),
	}
}

// Allow increments the caller's window counter and reports whether the
// request is within budget. A Redis failure allows the request: losing a
// rate-limit window is preferable to failing order creation outright.
func (l *RedisRateLimiter) Allow(ctx context.Context, scope, clientID string) (bool, error) {
	key := rateLimitKey(scope, clientID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Error("rate limiter unavailable",
			slog.String("scope", scope),
			slog.Any("error", err))
		return true, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Error("failed to set rate limit window",
				slog.String("key", key),
				slog.Any("error", err))
		}
	}

	if count > int64(l.max) {
		l.logger.Warn("rate limit exceeded",
			slog.String("scope", scope),
			slog.String("client_id", clientID),
			slog.Int64("count", count))
		return false, nil
	}
	return true, nil
}

func rateLimitKey(scope, clientID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, clientID)
}
