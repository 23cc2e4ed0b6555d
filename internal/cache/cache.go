package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"
)

// Item represents a cached value with expiration
type Item[V any] struct {
	Value     V
	ExpiresAt time.Time
}

func (i *Item[V]) expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Stats is the snapshot served by /cache/stats
type Stats struct {
	TotalItems   int     `json:"total_items"`
	ExpiredItems int     `json:"expired_items"`
	ActiveItems  int     `json:"active_items"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hit_rate"`
	TTLSeconds   float64 `json:"ttl_seconds"`
}

// Metrics receives hit and miss notifications
type Metrics interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// Cache provides thread-safe caching with TTL
type Cache[V any] struct {
	metrics Metrics
	mu      sync.RWMutex
	items   map[string]*Item[V]
	ttl     time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a cache with the given TTL and starts the janitor goroutine.
// Call Close to stop it.
func New[V any](ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]*Item[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	interval := ttl
	if interval <= 0 || interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	go c.cleanup(interval)

	return c
}

// cleanup removes expired items periodically
func (c *Cache[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *Cache[V]) purge() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
		}
	}
}

// SetMetrics forwards hits and misses to m. Call before the cache is shared.
func (c *Cache[V]) SetMetrics(m Metrics) {
	c.metrics = m
}

// Close stops the janitor goroutine
func (c *Cache[V]) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Key derives a stable cache key from its parts
func Key(namespace string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// Get retrieves an item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || item.expired(c.now()) {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.IncrementCacheMiss()
		}
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.IncrementCacheHit()
	}
	return item.Value, true
}

// Set stores an item in the cache
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &Item[V]{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*Item[V])
}

// Size returns the number of items in the cache
func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache[V]) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	totalItems := len(c.items)
	expiredItems := 0
	for _, item := range c.items {
		if item.expired(now) {
			expiredItems++
		}
	}
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return Stats{
		TotalItems:   totalItems,
		ExpiredItems: expiredItems,
		ActiveItems:  totalItems - expiredItems,
		Hits:         hits,
		Misses:       misses,
		HitRate:      hitRate,
		TTLSeconds:   c.ttl.Seconds(),
	}
}
