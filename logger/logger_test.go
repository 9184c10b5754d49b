package logger

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reset() {
	Default = nil
	defaultOnce = sync.Once{}
}

func TestComponentLoggers(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer reset()

	ForCrawler("wishlist").Info().Int64("item_id", 962572).Msg("scraped")
	out := buf.String()
	assert.Contains(t, out, `"component":"crawler"`)
	assert.Contains(t, out, `"variant":"wishlist"`)
	assert.Contains(t, out, `"item_id":962572`)

	buf.Reset()
	LogError("worker", errors.New("fetch failed"), "item %d", 7)
	out = buf.String()
	assert.Contains(t, out, `"component":"worker"`)
	assert.Contains(t, out, "fetch failed")
	assert.Contains(t, out, "item 7")
}

func TestLogLevelFromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GEIZHALS_ENVIRONMENT", "production")
	assert.Equal(t, "info", getLogLevel().String())

	t.Setenv("GEIZHALS_ENVIRONMENT", "development")
	assert.Equal(t, "debug", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, "warn", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, "info", getLogLevel().String())
}

func TestConcurrentFirstUse(t *testing.T) {
	reset()
	defer reset()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ForWorker().Debug().Int("goroutine", i).Msg("first use")
		}(i)
	}
	wg.Wait()

	assert.NotNil(t, Default)
}
