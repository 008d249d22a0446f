package cache

// Cache is a key-value cache whose entries expire.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value with the cache's TTL.
	Set(key K, value V)

	// Len returns the number of non-expired items currently stored.
	Len() int

	// PurgeExpired removes expired entries and returns how many it removed.
	PurgeExpired() int
}
