package cache

import (
	"errors"
	"strconv"
	"time"

	"github.com/jodli/geizhalsbot/logger"
)

// FailureCounter counts consecutive fetch failures per item
type FailureCounter struct {
	cache CacheService
	ttl   time.Duration
}

// NewFailureCounter creates a counter whose entries expire after ttl without updates
func NewFailureCounter(cache CacheService, ttl time.Duration) *FailureCounter {
	return &FailureCounter{cache: cache, ttl: ttl}
}

func failureKey(itemKey string) string {
	return "fail:" + itemKey
}

// Increment adds one failure for itemKey and returns the new count
func (f *FailureCounter) Increment(itemKey string) (int, error) {
	key := failureKey(itemKey)
	if inc, ok := f.cache.(Incrementer); ok {
		return inc.Increment(key, f.ttl)
	}

	count := 0
	value, err := f.cache.Get(key)
	switch {
	case err == nil:
		count, err = strconv.Atoi(string(value))
		if err != nil {
			logger.ForCache().Warn().Str("key", key).Msg("Corrupt failure counter, restarting at zero")
			count = 0
		}
	case !errors.Is(err, ErrCacheMiss):
		return 0, err
	}

	count++
	if err := f.cache.Set(key, []byte(strconv.Itoa(count)), f.ttl); err != nil {
		return 0, err
	}
	return count, nil
}

// Reset clears the failures of itemKey
func (f *FailureCounter) Reset(itemKey string) error {
	return f.cache.Delete(failureKey(itemKey))
}
