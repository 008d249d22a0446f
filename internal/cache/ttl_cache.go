package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time // zero means no expiration
}

func (e entry[V]) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && at.After(e.expiresAt)
}

// Options controls construction of a TTLCache.
type Options struct {
	// TTL applies to Set. Zero keeps entries until evicted.
	TTL time.Duration
	// MaxEntries bounds the cache; the oldest entry is evicted first.
	// Zero means unbounded.
	MaxEntries int
}

// TTLCache is a goroutine-safe map-backed cache. Expired entries are dropped
// lazily on read, when room is needed, or through PurgeExpired.
type TTLCache[K comparable, V any] struct {
	mu    sync.RWMutex
	opts  Options
	items map[K]entry[V]
}

func New[K comparable, V any](opts Options) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		opts:  opts,
		items: make(map[K]entry[V]),
	}
}

// now is a small indirection to allow test stubbing.
var now = time.Now

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(now()) {
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := now()
	if _, exists := c.items[key]; !exists && c.opts.MaxEntries > 0 && len(c.items) >= c.opts.MaxEntries {
		c.makeRoomLocked(ts)
	}
	e := entry[V]{value: value, storedAt: ts}
	if c.opts.TTL > 0 {
		e.expiresAt = ts.Add(c.opts.TTL)
	}
	c.items[key] = e
}

// makeRoomLocked drops expired entries, or the oldest one when none expired.
func (c *TTLCache[K, V]) makeRoomLocked(ts time.Time) {
	var (
		oldestKey K
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.items {
		if e.expired(ts) {
			delete(c.items, k)
			continue
		}
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.storedAt, true
		}
	}
	if found && len(c.items) >= c.opts.MaxEntries {
		delete(c.items, oldestKey)
	}
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts := now()
	count := 0
	for _, e := range c.items {
		if !e.expired(ts) {
			count++
		}
	}
	return count
}

func (c *TTLCache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := now()
	removed := 0
	for k, e := range c.items {
		if e.expired(ts) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

var _ Cache[any, any] = (*TTLCache[any, any])(nil)
