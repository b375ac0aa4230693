// Package cache stores solved answers so that repeated problems skip the
// solver. Two backends share one interface: an in-process LRU and Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"islandflow/pkg/config"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrKeyNotFound is returned by Get when the key is absent or expired.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned by every operation after Close.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is a byte-valued key store with per-entry expiry.
type Cache interface {
	// Get returns ErrKeyNotFound for a missing or expired key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A ttl of zero or less uses the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// GetWithTTL also returns the remaining lifetime, -1 for entries that
	// never expire.
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error)

	// DeleteByPattern removes keys matching a glob with at most one '*'.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Stats describes cache usage.
type Stats struct {
	TotalKeys   int64
	Hits        int64
	Misses      int64
	HitRate     float64
	MemoryBytes int64
	Backend     string
}

// Options configures New.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	// memory
	MaxEntries      int
	CleanupInterval time.Duration

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	KeyPrefix     string
}

func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      10 * time.Minute,
		MaxEntries:      10_000,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisPoolSize:   10,
		KeyPrefix:       "islandflow:",
	}
}

// FromConfig maps the cache section of the service configuration.
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	if cfg.DefaultTTL > 0 {
		opts.DefaultTTL = cfg.DefaultTTL
	}
	if cfg.MaxEntries > 0 {
		opts.MaxEntries = cfg.MaxEntries
	}
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	return opts
}

// New builds the backend named by opts. Unknown backends fall back to
// memory.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}

func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
