// Package cache provides a small generic TTL cache used to keep hot
// analytics responses off the store.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// TTL is a bounded cache whose entries expire after a fixed duration.
// When full, Set evicts the entry closest to expiry.
type TTL[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]entry[T]
	now     func() time.Time
}

func NewTTL[T any](ttl time.Duration, maxSize int) *TTL[T] {
	return &TTL[T]{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]entry[T]),
		now:     time.Now,
	}
}

func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize > 0 && len(c.items) >= c.maxSize {
		if _, exists := c.items[key]; !exists {
			c.evictOldest()
		}
	}
	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *TTL[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TTL[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired drops every expired entry and reports how many went.
func (c *TTL[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// evictOldest removes the entry closest to expiry. Caller holds the
// lock.
func (c *TTL[T]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.items {
		if first || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}
