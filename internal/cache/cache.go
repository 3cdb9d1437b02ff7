package cache

import (
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a string-keyed TTL cache with prefix-based bulk invalidation.
// Keys follow the "<scope>:<id>" convention (e.g. "id:42", "event:42") so a
// single mutation can drop every derived view of an entity without tracking
// exact keys. Entries expire ttl after they were set; expired entries are
// evicted lazily on access rather than by a background sweeper.
//
// All methods are safe for concurrent use. Cache operations never fail; a
// miss simply degrades to a store read.
type Cache[V any] struct {
	items *ttlcache.Cache[string, V]
}

// New creates a cache whose entries live for ttl after each Set.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		items: ttlcache.New(
			ttlcache.WithTTL[string, V](ttl),
			// Reads must not extend an entry's lifetime; staleness is
			// bounded by time-since-set.
			ttlcache.WithDisableTouchOnHit[string, V](),
		),
	}
}

// Get returns the value stored under key. ok is false when the key was never
// set or its entry has outlived the TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	item := c.items.Get(key)
	if item == nil {
		var zero V
		return zero, false
	}
	return item.Value(), true
}

// Set stores value under key with the cache's configured TTL, replacing any
// existing entry.
func (c *Cache[V]) Set(key string, value V) {
	c.items.Set(key, value, ttlcache.DefaultTTL)
}

// Invalidate removes every entry whose key starts with prefix. An empty
// prefix clears the whole cache.
func (c *Cache[V]) Invalidate(prefix string) {
	if prefix == "" {
		c.items.DeleteAll()
		return
	}
	var stale []string
	c.items.Range(func(item *ttlcache.Item[string, V]) bool {
		if strings.HasPrefix(item.Key(), prefix) {
			stale = append(stale, item.Key())
		}
		return true
	})
	for _, key := range stale {
		c.items.Delete(key)
	}
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been evicted.
func (c *Cache[V]) Len() int {
	return c.items.Len()
}
