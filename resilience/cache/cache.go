// Package cache implements the key-addressed, TTL-bounded, size-bounded
// (LRU eviction) response cache from spec.md §4.6, including
// stale-while-revalidate: an expired entry within the stale window is
// returned immediately while a background refresh runs, and if that
// refresh fails the stale value remains valid until the window closes.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Producer computes the value to cache for a key.
type Producer func(ctx context.Context) (interface{}, error)

// Options configures a Cache.
type Options struct {
	TTL                   time.Duration
	MaxEntries            int
	StaleWhileRevalidate  bool
	StaleWindow           time.Duration
	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

type entry struct {
	key        string
	value      interface{}
	producedAt time.Time
	refreshing bool
}

// Cache is a single provider's response cache. Entries are never shared
// across providers — construct one Cache per provider.
type Cache struct {
	opts Options
	mu   sync.Mutex
	ll   *list.List // front = most recently used
	idx  map[string]*list.Element
}

// New builds a Cache with the given options.
func New(opts Options) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	return &Cache{
		opts: opts,
		ll:   list.New(),
		idx:  make(map[string]*list.Element),
	}
}

func (c *Cache) now() time.Time {
	if c.opts.Now != nil {
		return c.opts.Now()
	}
	return time.Now()
}

// Execute returns the cached value for key if fresh. If expired but
// within the stale window and StaleWhileRevalidate is enabled, the stale
// value is returned immediately and producer is invoked in a background
// goroutine to refresh the entry (a failed refresh leaves the stale
// value in place). Otherwise producer is invoked synchronously and its
// result is stored.
func (c *Cache) Execute(ctx context.Context, key string, producer Producer) (interface{}, error) {
	c.mu.Lock()
	el, ok := c.idx[key]
	if ok {
		e := el.Value.(*entry)
		age := c.now().Sub(e.producedAt)

		if age <= c.opts.TTL {
			c.ll.MoveToFront(el)
			value := e.value
			c.mu.Unlock()
			return value, nil
		}

		if c.opts.StaleWhileRevalidate && age <= c.opts.TTL+c.opts.StaleWindow {
			shouldRefresh := !e.refreshing
			if shouldRefresh {
				e.refreshing = true
			}
			value := e.value
			c.mu.Unlock()

			if shouldRefresh {
				go c.refresh(key, producer)
			}
			return value, nil
		}
	}
	c.mu.Unlock()

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	c.store(key, value)
	return value, nil
}

// refresh runs producer in the background for a stale-while-revalidate
// entry. Cache itself has no breaker knowledge: the Resilience Facade
// wraps the producer it passes to Execute so that, while the breaker is
// OPEN, it returns a circuit-open error without calling the real
// producer (see facade.go). Such a refresh fails and the stale value
// stays in place.
func (c *Cache) refresh(key string, producer Producer) {
	value, err := producer(context.Background())
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.idx[key]
	if !ok {
		return
	}
	e := el.Value.(*entry)
	e.refreshing = false
	if err != nil {
		return // stale value remains valid until the stale window closes
	}
	e.value = value
	e.producedAt = c.now()
}

func (c *Cache) store(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.idx[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.producedAt = c.now()
		c.ll.MoveToFront(el)
		return
	}

	e := &entry{key: key, value: value, producedAt: c.now()}
	el := c.ll.PushFront(e)
	c.idx[key] = el

	for c.ll.Len() > c.opts.MaxEntries {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.idx, oldest.Value.(*entry).key)
	}
}

// Invalidate removes key from the cache, if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.idx[key]; ok {
		c.ll.Remove(el)
		delete(c.idx, key)
	}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
