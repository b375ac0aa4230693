// Package ratelimit throttles solve requests per caller.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrLimiterClosed = errors.New("limiter is closed")

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Limiter decides whether a caller identified by key may issue another
// request.
type Limiter interface {
	// Allow consumes one request from key's budget when one is left.
	Allow(ctx context.Context, key string) (bool, error)

	// Reset forgets everything known about key.
	Reset(ctx context.Context, key string) error

	Info(ctx context.Context, key string) (*LimitInfo, error)

	Close() error
}

type LimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Config sizes the budget: Requests per Window, with Burst extra requests
// allowed on top by the memory backend.
type Config struct {
	Requests        int
	Window          time.Duration
	Burst           int
	Backend         string
	CleanupInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

func DefaultConfig() *Config {
	return &Config{
		Requests:        100,
		Window:          time.Minute,
		Burst:           10,
		Backend:         BackendMemory,
		CleanupInterval: 5 * time.Minute,
		KeyPrefix:       "ratelimit:",
	}
}

// New builds the limiter selected by cfg.Backend.
func New(cfg *Config) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case BackendRedis:
		l, err := NewRedisLimiter(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return NewMemoryLimiter(cfg), nil
	}
}
