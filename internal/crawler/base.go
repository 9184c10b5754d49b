package crawler

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// BaseCrawler provides page fetching and document parsing
type BaseCrawler struct {
	fetcher Fetcher
}

// fetchDocument fetches url and parses it into a goquery document
func (c *BaseCrawler) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	utf8Body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return c.createDocument(utf8Body)
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
