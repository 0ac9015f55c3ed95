// Package ratelimit implements a fixed-window per-key limiter on Redis INCR/EXPIRE.
// A limiter without Redis, or one whose Redis call fails, lets everything through.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/pkg/metrics"
)

// Limiter counts actions per key in fixed windows.
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// Connect dials Redis and returns a client, or nil when addr is empty or the ping fails.
func Connect(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Redis unavailable, rate limiting disabled")
		_ = client.Close()
		return nil
	}

	log.Info().Str("addr", addr).Msg("Connected to Redis")
	return client
}

// New creates a limiter allowing max actions per window. A nil client or a
// non-positive max disables limiting.
func New(client *redis.Client, max int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, max: max, window: window}
}

// Enabled reports whether the limiter talks to Redis.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.max > 0
}

// Key builds the counter key for an identifier: rl:<window_seconds>:<id>.
func (l *Limiter) Key(id int64) string {
	return "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + strconv.FormatInt(id, 10)
}

// Allow counts one action for id and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, id int64) bool {
	if !l.Enabled() {
		return true
	}
	metrics.RLRequests.Inc()

	key := l.Key(id)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Int64("user_id", id).Msg("Rate limiter error, allowing action")
		return true
	}
	if n == 1 {
		l.client.Expire(ctx, key, l.window)
	}

	if n > int64(l.max) {
		metrics.RLBlocked.Inc()
		return false
	}
	return true
}

// Ping checks the Redis connection. A disabled limiter is always healthy.
func (l *Limiter) Ping(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (l *Limiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
