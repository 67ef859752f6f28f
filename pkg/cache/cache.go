// Package cache provides an in-process cache for on-chain token metadata.
package cache

import "time"

// Cache is the interface for caching token metadata read from the chain.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (any, bool)

	// Set stores a value in the cache with a TTL. A zero TTL never expires.
	Set(key string, value any, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Wait blocks until pending writes are visible to Get.
	Wait()

	// Close closes the cache and releases resources.
	Close()
}
