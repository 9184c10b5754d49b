package crawler

import (
	"context"
	"io"

	"github.com/jodli/geizhalsbot/internal/models"
)

// Field names a piece of data extracted from an upstream page
type Field string

const (
	FieldPrice Field = "price"
	FieldName  Field = "name"
	FieldID    Field = "id"
)

// Fetcher retrieves the raw HTML of a page
type Fetcher interface {
	// Fetch returns the UTF-8 body of url or a transport error
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// Selectors contains CSS selectors for the fields of one page type.
// An empty ID selector means the identifier is taken from the URL.
type Selectors struct {
	Price string `yaml:"price"`
	Name  string `yaml:"name"`
	ID    string `yaml:"id"`
}

// For returns the selector configured for field
func (s Selectors) For(field Field) string {
	switch field {
	case FieldPrice:
		return s.Price
	case FieldName:
		return s.Name
	case FieldID:
		return s.ID
	}
	return ""
}

// SelectorSet holds the selectors of every variant
type SelectorSet map[models.Variant]Selectors

// ScrapedItem is the result of one fetch, extract and normalize pass
type ScrapedItem struct {
	Variant models.Variant
	ID      int64
	Name    string
	URL     string
	Price   models.Price
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	Selectors SelectorSet
	Fetcher   Fetcher
}
