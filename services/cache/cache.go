package cache

import (
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// Incrementer is implemented by caches that can count atomically
type Incrementer interface {
	// Increment adds one to the counter at key, creating it at 1, and
	// restarts its expiration
	Increment(key string, expiration time.Duration) (int, error)
}
