// Package cache provides small in-process caches used by the schedule engine.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultCapacity is used when a non-positive capacity is given.
	DefaultCapacity = 256
	// DefaultTTL is used when a non-positive TTL is given.
	DefaultTTL = 5 * time.Minute
)

// TTLCache is a bounded map whose entries expire after a fixed TTL.
// When full, the oldest inserted entry is evicted. Reads do not change
// an entry's eviction position.
type TTLCache[V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*entry[V]
	order *list.List // front = newest insertion
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	element   *list.Element
}

// NewTTLCache creates a new cache.
func NewTTLCache[V any](capacity int, ttl time.Duration) *TTLCache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &TTLCache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*entry[V]),
		order:    list.New(),
	}
}

// WithClock replaces the clock used for expiry. Intended for tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get retrieves a live value from the cache.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}

	if !c.now().Before(e.expiresAt) {
		c.removeEntry(e)
		return zero, false
	}

	return e.value, true
}

// Set stores a value. Re-setting a key counts as a fresh insertion.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.items) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
	e.element = c.order.PushFront(e)
	c.items[key] = e
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V])
	c.order.Init()
}

// CleanupExpired removes all expired entries and returns how many were removed.
func (c *TTLCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry[V])
		if !now.Before(e.expiresAt) {
			c.removeEntry(e)
			removed++
		}
		el = prev
	}
	return removed
}

// evictOldest must be called with the lock held.
func (c *TTLCache[V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry[V]))
}

// removeEntry must be called with the lock held.
func (c *TTLCache[V]) removeEntry(e *entry[V]) {
	c.order.Remove(e.element)
	delete(c.items, e.key)
}
