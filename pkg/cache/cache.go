// Package cache provides an expiring in-memory cache for advisor answers
// so repeated questions do not reach the upstream model.
package cache

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Item is a cached value with its expiry in Unix nanoseconds; 0 never expires.
type Item[V any] struct {
	Value      V
	Expiration int64
}

// Expired checks if the item has expired
func (item Item[V]) Expired() bool {
	if item.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > item.Expiration
}

// TTLCache is a thread-safe string-keyed cache with time-based expiration
type TTLCache[V any] struct {
	items           map[string]Item[V]
	mu              sync.RWMutex
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	maxItems        int
	stopCleanup     chan struct{}
	cleanupStarted  sync.Once
	cleanupStopped  sync.Once
	onEvict         func(key string)
}

// Option configures a TTLCache
type Option[V any] func(*TTLCache[V])

// WithEvictCallback registers fn to run for each key dropped for capacity.
func WithEvictCallback[V any](fn func(key string)) Option[V] {
	return func(c *TTLCache[V]) {
		c.onEvict = fn
	}
}

// NewTTLCache creates a cache with the given TTL and cleanup interval.
// Once more than maxItems are stored the soonest-expiring ones are evicted.
func NewTTLCache[V any](defaultTTL, cleanupInterval time.Duration, maxItems int, opts ...Option[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		items:           make(map[string]Item[V]),
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		maxItems:        maxItems,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.startCleanupTimer()

	return c
}

// Set adds an item to the cache with the default TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL adds an item to the cache with a specific TTL
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = Item[V]{Value: value, Expiration: expiration}
	var evicted []string
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		evicted = c.evictOldest()
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, k := range evicted {
			c.onEvict(k)
		}
	}
}

// Get retrieves an item from the cache
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !found {
		return zero, false
	}

	if item.Expired() {
		c.mu.Lock()
		// Re-check under the write lock in case the key was refreshed
		if latest, ok := c.items[key]; ok && latest.Expired() {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return item.Value, true
}

// Delete removes an item from the cache
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Count returns the number of items in the cache
func (c *TTLCache[V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all items from the cache
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]Item[V])
	c.mu.Unlock()
}

// evictOldest removes the soonest-expiring items until the cache fits.
// Caller must hold the write lock.
func (c *TTLCache[V]) evictOldest() []string {
	type keyExpiration struct {
		key        string
		expiration int64
	}

	itemsToRemove := len(c.items) - c.maxItems
	if itemsToRemove <= 0 {
		return nil
	}

	keyExpirations := make([]keyExpiration, 0, len(c.items))
	for k, v := range c.items {
		// Items without expiry are evicted last
		exp := v.Expiration
		if exp == 0 {
			exp = math.MaxInt64
		}
		keyExpirations = append(keyExpirations, keyExpiration{k, exp})
	}

	sort.Slice(keyExpirations, func(i, j int) bool {
		return keyExpirations[i].expiration < keyExpirations[j].expiration
	})

	evicted := make([]string, 0, itemsToRemove)
	for i := 0; i < itemsToRemove; i++ {
		delete(c.items, keyExpirations[i].key)
		evicted = append(evicted, keyExpirations[i].key)
	}
	return evicted
}

func (c *TTLCache[V]) startCleanupTimer() {
	if c.cleanupInterval <= 0 {
		return
	}

	c.cleanupStarted.Do(func() {
		ticker := time.NewTicker(c.cleanupInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					c.deleteExpired()
				case <-c.stopCleanup:
					return
				}
			}
		}()
	})
}

// deleteExpired deletes all expired items
func (c *TTLCache[V]) deleteExpired() {
	now := time.Now().UnixNano()

	c.mu.Lock()
	for k, v := range c.items {
		if v.Expiration > 0 && v.Expiration < now {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Stop stops the cleanup timer
func (c *TTLCache[V]) Stop() {
	c.cleanupStopped.Do(func() {
		close(c.stopCleanup)
	})
}
