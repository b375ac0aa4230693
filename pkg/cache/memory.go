package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is an in-process LRU with per-entry expiry. Expired entries
// are dropped lazily on access and by a janitor goroutine that runs until
// Close.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	bytes      int64
	defaultTTL time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func NewMemoryCache(opts *Options) *MemoryCache {
	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaults.MaxEntries
	}
	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = defaults.CleanupInterval
	}

	c := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		defaultTTL: opts.DefaultTTL,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.janitor(interval)

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := c.GetWithTTL(ctx, key)
	return value, err
}

func (c *MemoryCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	if c.closed.Load() {
		return nil, 0, ErrCacheClosed
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, 0, ErrKeyNotFound
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(now) {
		c.removeElement(el)
		c.misses.Add(1)
		return nil, 0, ErrKeyNotFound
	}

	c.hits.Add(1)
	c.order.MoveToFront(el)

	ttl := time.Duration(-1)
	if !entry.expiresAt.IsZero() {
		ttl = entry.expiresAt.Sub(now)
	}

	return append([]byte(nil), entry.value...), ttl, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	entry := &memoryEntry{key: key, value: append([]byte(nil), value...), expiresAt: expiresAt}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	for c.order.Len() >= c.maxEntries {
		c.removeElement(c.order.Back())
	}

	c.items[key] = c.order.PushFront(entry)
	c.bytes += int64(len(entry.value))

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	return ok && !el.Value.(*memoryEntry).expired(time.Now()), nil
}

func (c *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	for key, el := range c.items {
		if matchPattern(pattern, key) {
			c.removeElement(el)
			count++
		}
	}

	return count, nil
}

func (c *MemoryCache) Stats(ctx context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	stats := &Stats{
		TotalKeys:   int64(c.order.Len()),
		MemoryBytes: c.bytes,
		Backend:     BackendMemory,
	}
	c.mu.Unlock()

	stats.Hits = c.hits.Load()
	stats.Misses = c.misses.Load()
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return stats, nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.reset()
	return nil
}

// Close stops the janitor. Calling it twice is safe.
func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.stopCh)
	c.wg.Wait()

	c.reset()
	return nil
}

func (c *MemoryCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.bytes = 0
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *MemoryCache) purgeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, el := range c.items {
		if el.Value.(*memoryEntry).expired(now) {
			c.removeElement(el)
		}
	}
}

// removeElement requires c.mu.
func (c *MemoryCache) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(*memoryEntry)
	delete(c.items, entry.key)
	c.bytes -= int64(len(entry.value))
}

// matchPattern supports "*", "prefix*", "*suffix", "prefix*suffix" and exact
// keys.
func matchPattern(pattern, key string) bool {
	prefix, suffix, found := strings.Cut(pattern, "*")
	if !found {
		return pattern == key
	}
	return len(key) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(key, prefix) &&
		strings.HasSuffix(key, suffix)
}
