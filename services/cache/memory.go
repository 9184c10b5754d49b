package cache

import (
	"strconv"
	"sync"
	"time"
)

// MemoryCache is an in-process CacheService used when no memcache server
// is configured
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

var (
	_ CacheService = (*MemoryCache)(nil)
	_ Incrementer  = (*MemoryCache)(nil)
)

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get retrieves a value
func (m *MemoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		delete(m.items, key)
		return nil, ErrCacheMiss
	}
	return item.value, nil
}

// Set stores a value. A zero expiration never expires.
func (m *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: append([]byte(nil), value...)}
	if expiration > 0 {
		item.expiresAt = m.now().Add(expiration)
	}
	m.items[key] = item
	return nil
}

// Delete removes a value
func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Increment adds one to the counter at key. A missing, expired or
// non-numeric value restarts at one.
func (m *MemoryCache) Increment(key string, expiration time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	if item, ok := m.items[key]; ok && (item.expiresAt.IsZero() || !m.now().After(item.expiresAt)) {
		if n, err := strconv.Atoi(string(item.value)); err == nil {
			count = n
		}
	}
	count++

	item := memoryItem{value: []byte(strconv.Itoa(count))}
	if expiration > 0 {
		item.expiresAt = m.now().Add(expiration)
	}
	m.items[key] = item
	return count, nil
}
