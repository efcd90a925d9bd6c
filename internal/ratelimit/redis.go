package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// fixedWindow counts hits per key and starts the window on the first hit.
var fixedWindow = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return { count, ttl }
`)

type RedisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	prefix   string
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisLimiter(client *redis.Client, cfg config.RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		requests: cfg.Requests,
		window:   cfg.Window(),
		prefix:   cfg.Prefix,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := fixedWindow.Run(ctx, l.client, []string{Key(l.prefix, key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit %s: unexpected script result %v", key, vals)
	}
	return evaluate(l.requests, vals[0], time.Duration(vals[1])*time.Millisecond), nil
}

func evaluate(limit int, count int64, ttl time.Duration) Result {
	res := Result{Allowed: count <= int64(limit), Limit: limit}
	if remaining := int64(limit) - count; remaining > 0 {
		res.Remaining = int(remaining)
	}
	if !res.Allowed && ttl > 0 {
		res.RetryAfter = ttl
	}
	return res
}

func Key(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

var _ Limiter = (*RedisLimiter)(nil)
