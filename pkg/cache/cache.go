// Package cache provides a thread-safe LRU cache keyed by filter source.
//
// The evaluator uses it to keep compiled programs when the WithCaching option
// is enabled, so running the same filter over many inputs parses and resolves
// it once.
//
// # Example
//
//	c := cache.New[*evaluator.Program](1024)
//	prog, err := c.GetOrCompile(".items[] | select(.price > 100)", compile)
package cache

import (
	"container/list"
	"sync"
)

type entry[V any] struct {
	key string
	val V
}

// Cache is a thread-safe LRU (Least Recently Used) cache. Once the capacity
// is reached, the least recently accessed entry is evicted.
type Cache[V any] struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a cache holding up to capacity entries; 256 when capacity <= 0.
func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache[V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	front := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}

	if !front {
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()
		if !ok {
			var zero V
			return zero, false
		}
	}
	return el.Value.(*entry[V]).val, true
}

// Set inserts or replaces the value of key, evicting the least recently used
// entry when the cache is full.
func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).val = val
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry[V]{key: key, val: val})
}

// GetOrCompile returns the cached value of key or stores the result of
// compile. Errors are not cached.
func (c *Cache[V]) GetOrCompile(key string, compile func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compile()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry. c.mu must be held.
func (c *Cache[V]) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
