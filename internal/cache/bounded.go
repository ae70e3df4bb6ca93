package cache

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// BoundedCache is a capacity-limited in-memory cache of typed values.
// When full, the oldest inserted entry is evicted.
type BoundedCache[V any] struct {
	mu       sync.Mutex
	items    *gocache.Cache
	capacity int
	seq      uint64
}

type boundedItem[V any] struct {
	value V
	seq   uint64
}

// NewBoundedCache creates a cache holding at most capacity entries.
// A capacity below 1 is treated as 1.
func NewBoundedCache[V any](capacity int) *BoundedCache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedCache[V]{
		items:    gocache.New(gocache.NoExpiration, 0),
		capacity: capacity,
	}
}

// Get returns the cached value for key
func (c *BoundedCache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	item, ok := raw.(boundedItem[V])
	if !ok {
		return zero, false
	}
	return item.value, true
}

// Set stores value under key, evicting the oldest entry when at capacity
func (c *BoundedCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.capacity {
		c.evictOldest()
	}
	c.seq++
	c.items.Set(key, boundedItem[V]{value: value, seq: c.seq}, gocache.NoExpiration)
}

// Len returns the number of cached entries
func (c *BoundedCache[V]) Len() int {
	return c.items.ItemCount()
}

// Capacity returns the configured bound
func (c *BoundedCache[V]) Capacity() int {
	return c.capacity
}

func (c *BoundedCache[V]) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for k, it := range c.items.Items() {
		item, ok := it.Object.(boundedItem[V])
		if !ok {
			continue
		}
		if first || item.seq < oldestSeq {
			oldestKey, oldestSeq, first = k, item.seq, false
		}
	}
	if !first {
		c.items.Delete(oldestKey)
	}
}
