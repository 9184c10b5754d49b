package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

var (
	_ CacheService = (*MemcacheService)(nil)
	_ Incrementer  = (*MemcacheService)(nil)
)

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Ping checks that the memcache server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value from memcache. A missing key is not an error.
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Increment counts with memcache incr. A missing key is created with add,
// and a lost add race falls back to incr again.
func (m *MemcacheService) Increment(key string, expiration time.Duration) (int, error) {
	seconds := int32(expiration.Seconds())
	for attempt := 0; attempt < 3; attempt++ {
		n, err := m.client.Increment(key, 1)
		if err == nil {
			if err := m.client.Touch(key, seconds); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
				return int(n), err
			}
			return int(n), nil
		}
		if !errors.Is(err, memcache.ErrCacheMiss) {
			return 0, err
		}

		err = m.client.Add(&memcache.Item{Key: key, Value: []byte("1"), Expiration: seconds})
		if err == nil {
			return 1, nil
		}
		if !errors.Is(err, memcache.ErrNotStored) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("failed to increment %s: key keeps changing", key)
}
