package tracker

import (
	"context"
	"sync"
	"testing"

	"github.com/jodli/geizhalsbot/internal/crawler"
	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/internal/storage/sqlite"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"

	"github.com/stretchr/testify/require"
)

// MockScraper returns canned scrape results keyed by URL
type MockScraper struct {
	mu      sync.Mutex
	results map[string]*crawler.ScrapedItem
	errs    map[string]error
	calls   int
}

var _ Scraper = (*MockScraper)(nil)

func NewMockScraper() *MockScraper {
	return &MockScraper{
		results: make(map[string]*crawler.ScrapedItem),
		errs:    make(map[string]error),
	}
}

func (m *MockScraper) SetPage(variant models.Variant, id int64, url, name, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errs, url)
	m.results[url] = &crawler.ScrapedItem{
		Variant: variant,
		ID:      id,
		Name:    name,
		URL:     url,
		Price:   mustNormalize(price),
	}
}

func (m *MockScraper) SetError(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[url] = err
}

func (m *MockScraper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockScraper) Scrape(ctx context.Context, variant models.Variant, url string) (*crawler.ScrapedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	item, ok := m.results[url]
	if !ok {
		return nil, apperrors.NewTransport(url, "unexpected status code: 404", nil)
	}
	scraped := *item
	return &scraped, nil
}

func mustNormalize(raw string) models.Price {
	price, err := crawler.NormalizePrice(raw)
	if err != nil {
		panic(err)
	}
	return price
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}
