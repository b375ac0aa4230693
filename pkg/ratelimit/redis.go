package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the key's sorted set to the window, then admits the
// request when fewer than limit entries remain.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window)
		return {1, limit - current - 1}
	end

	return {0, 0}
`)

// RedisLimiter is a sliding window log shared by every instance that talks
// to the same Redis. Burst is ignored.
type RedisLimiter struct {
	client *redis.Client
	config Config
	owned  bool
}

// NewRedisLimiter connects and pings the server.
func NewRedisLimiter(cfg *Config) (*RedisLimiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	l := NewRedisLimiterFromClient(client, cfg)
	l.owned = true
	return l, nil
}

// NewRedisLimiterFromClient shares an existing client. Close leaves it open.
func NewRedisLimiterFromClient(client *redis.Client, cfg *Config) *RedisLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &RedisLimiter{client: client, config: *cfg}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixMilli()

	result, err := slidingWindow.Run(ctx, l.client, []string{l.key(key)},
		l.config.Requests, l.config.Window.Milliseconds(), now, uuid.NewString()).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	if len(result) == 0 {
		return false, fmt.Errorf("rate limit script returned nothing")
	}

	return result[0] == 1, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *RedisLimiter) Info(ctx context.Context, key string) (*LimitInfo, error) {
	windowStart := time.Now().Add(-l.config.Window).UnixMilli()

	count, err := l.client.ZCount(ctx, l.key(key), strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil {
		return nil, err
	}

	return &LimitInfo{
		Limit:     l.config.Requests,
		Remaining: max(l.config.Requests-int(count), 0),
	}, nil
}

func (l *RedisLimiter) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}

func (l *RedisLimiter) key(key string) string {
	return l.config.KeyPrefix + key
}
