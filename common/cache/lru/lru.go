// Package lru implements a bounded, concurrency-safe Least-Recently-Used
// cache for memoizing ledger lookups.
package lru

import (
	"container/list"
	"errors"
	"sync"
)

// ErrInvalidCapacity is the error returned when the cache capacity is not
// positive.
var ErrInvalidCapacity = errors.New("lru: capacity must be positive")

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is an LRU cache holding at most a fixed number of entries.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	// order holds the entries, most recently used at the front.
	order *list.List
	index map[K]*list.Element
	limit int

	hits, misses uint64
}

// Get returns the value cached under key and marks it as most recently
// used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Put caches value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*entry[K, V]).key)
	}
	c.index[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
}

// Remove drops key from the cache and reports whether it was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.index, key)
	return true
}

// Keys returns the cached keys, least recently used first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		keys = append(keys, elem.Value.(*entry[K, V]).key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Stats returns the number of lookups that hit and missed the cache.
func (c *Cache[K, V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}

// New creates a cache holding at most limit entries.
func New[K comparable, V any](limit int) (*Cache[K, V], error) {
	if limit <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Cache[K, V]{
		order: list.New(),
		index: make(map[K]*list.Element),
		limit: limit,
	}, nil
}
