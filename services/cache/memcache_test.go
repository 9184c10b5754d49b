package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("fail:wishlist:962572", []byte("2"), 1*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("fail:wishlist:962572")
	assert.NoError(t, err)
	assert.Equal(t, "2", string(value))

	err = mc.Delete("fail:wishlist:962572")
	assert.NoError(t, err)

	_, err = mc.Get("fail:wishlist:962572")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting twice is fine
	assert.NoError(t, mc.Delete("fail:wishlist:962572"))
}

func TestMemcacheFailureCounter(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	counter := NewFailureCounter(mc, time.Minute)
	defer counter.Reset("product:1")

	for want := 1; want <= 3; want++ {
		got, err := counter.Increment("product:1")
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMemcacheIncrement_Concurrent(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	const key = "fail:product:concurrent"
	defer mc.Delete(key)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mc.Increment(key, time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, err := mc.Get(key)
	assert.NoError(t, err)
	assert.Equal(t, "10", string(value))
}
