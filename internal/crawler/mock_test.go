package crawler

import (
	"context"
	"io"
	"strings"
	"sync"

	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
)

// MockFetcher serves canned pages keyed by URL
type MockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

var _ Fetcher = (*MockFetcher)(nil)

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		pages: make(map[string]string),
		calls: make(map[string]int),
	}
}

func (m *MockFetcher) SetPage(url, html string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = html
}

func (m *MockFetcher) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[url]++
	html, ok := m.pages[url]
	if !ok {
		return nil, apperrors.NewTransport(url, "unexpected status code: 404", nil)
	}
	return strings.NewReader(html), nil
}
