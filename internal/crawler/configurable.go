package crawler

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/logger"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

var digitsRegex = regexp.MustCompile(`[0-9]+`)

// Crawler scrapes wishlist and product pages using configurable selectors
type Crawler struct {
	BaseCrawler
	Selectors SelectorSet
}

// NewCrawler creates a new crawler
func NewCrawler(config CrawlerConfig) *Crawler {
	selectors := config.Selectors
	if selectors == nil {
		selectors = DefaultSelectors()
	}
	return &Crawler{
		BaseCrawler: BaseCrawler{fetcher: config.Fetcher},
		Selectors:   selectors,
	}
}

// Scrape fetches url once and extracts id, name and price for the variant
func (c *Crawler) Scrape(ctx context.Context, variant models.Variant, url string) (*ScrapedItem, error) {
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return c.scrapeDocument(doc, variant, url)
}

// ParseHTML extracts an item from an already fetched page
func (c *Crawler) ParseHTML(variant models.Variant, url string, html io.Reader) (*ScrapedItem, error) {
	doc, err := c.createDocument(html)
	if err != nil {
		return nil, err
	}
	return c.scrapeDocument(doc, variant, url)
}

// Extract returns the trimmed text of the first node matching the selector
// configured for (variant, field), or a not-found error naming the selector.
func (c *Crawler) Extract(doc *goquery.Document, variant models.Variant, field Field, url string) (string, error) {
	selector := c.Selectors[variant].For(field)
	if selector == "" {
		return "", apperrors.NewNotFound(url, string(field)+": no selector configured")
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", apperrors.NewNotFound(url, selector)
	}

	return strings.TrimSpace(sel.Text()), nil
}

func (c *Crawler) scrapeDocument(doc *goquery.Document, variant models.Variant, url string) (*ScrapedItem, error) {
	log := logger.ForCrawler(variant.String()).WithField("url", url)

	rawPrice, err := c.Extract(doc, variant, FieldPrice, url)
	if err != nil {
		log.Warn().Err(err).Str("selector", c.Selectors[variant].Price).Msg("Price selector matched nothing")
		return nil, err
	}

	price, err := NormalizePrice(rawPrice)
	if err != nil {
		log.Warn().Str("raw_price", rawPrice).Msg("Price text has an unknown shape")
		return nil, apperrors.New(apperrors.ErrorTypeUnparseablePrice, url, "cannot normalize price", err)
	}

	id, err := c.extractID(doc, variant, url)
	if err != nil {
		return nil, err
	}

	// The name is informational, a miss keeps the stored name
	name, err := c.Extract(doc, variant, FieldName, url)
	if err != nil {
		log.Warn().Err(err).Str("selector", c.Selectors[variant].Name).Msg("Name selector matched nothing")
		name = ""
	}

	return &ScrapedItem{
		Variant: variant,
		ID:      id,
		Name:    name,
		URL:     url,
		Price:   price,
	}, nil
}

// extractID reads the identifier from the page if a selector is configured
// and falls back to the variant's URL pattern otherwise.
func (c *Crawler) extractID(doc *goquery.Document, variant models.Variant, url string) (int64, error) {
	if c.Selectors[variant].ID != "" {
		text, err := c.Extract(doc, variant, FieldID, url)
		if err == nil {
			if digits := digitsRegex.FindString(text); digits != "" {
				if id, err := strconv.ParseInt(digits, 10, 64); err == nil {
					return id, nil
				}
			}
		}
		logger.ForCrawler(variant.String()).Debug().
			Str("url", url).
			Str("selector", c.Selectors[variant].ID).
			Msg("Identifier not found in page, using URL")
	}
	return variant.IDFromURL(url)
}
