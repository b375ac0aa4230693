package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a token bucket per key. A bucket holds at most
// Requests+Burst tokens and refills at Requests per Window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  Config
	now     func() time.Time
	stopCh  chan struct{}
	closed  bool
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

func NewMemoryLimiter(cfg *Config) *MemoryLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		config:  *cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if l.config.CleanupInterval > 0 {
		go l.cleanup()
	}

	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, ErrLimiterClosed
	}

	b := l.refill(key)
	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

func (l *MemoryLimiter) Info(_ context.Context, key string) (*LimitInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrLimiterClosed
	}

	b := l.refill(key)
	return &LimitInfo{
		Limit:     l.capacity(),
		Remaining: int(b.tokens),
	}, nil
}

func (l *MemoryLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.stopCh)
	l.buckets = nil

	return nil
}

func (l *MemoryLimiter) capacity() int {
	return l.config.Requests + l.config.Burst
}

// refill must be called with mu held.
func (l *MemoryLimiter) refill(key string) *bucket {
	now := l.now()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.capacity()), lastCheck: now}
		l.buckets[key] = b
		return b
	}

	if l.config.Window > 0 {
		rate := float64(l.config.Requests) / l.config.Window.Seconds()
		b.tokens += now.Sub(b.lastCheck).Seconds() * rate
	}
	b.lastCheck = now

	if full := float64(l.capacity()); b.tokens > full {
		b.tokens = full
	}
	return b
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.dropIdle()
		}
	}
}

// dropIdle removes buckets idle for long enough to have refilled. A full
// bucket behaves exactly like a missing one.
func (l *MemoryLimiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config.Requests <= 0 {
		return
	}
	refill := time.Duration(float64(l.config.Window) * float64(l.capacity()) / float64(l.config.Requests))
	cutoff := l.now().Add(-refill)

	for key, b := range l.buckets {
		if b.lastCheck.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
