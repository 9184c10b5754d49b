package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jodli/geizhalsbot/internal/crawler"
	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/internal/storage"
	"github.com/jodli/geizhalsbot/logger"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
)

// ResultKind classifies the outcome of one reconciliation
type ResultKind int

const (
	Unchanged ResultKind = iota
	PriceChanged
	WithheldNowKnown
	KnownNowWithheld
	// ParseFailed means the page was fetched but its data could not be read
	ParseFailed
	// FetchFailed means the page could not be fetched
	FetchFailed
)

var resultKindNames = map[ResultKind]string{
	Unchanged:        "unchanged",
	PriceChanged:     "price_changed",
	WithheldNowKnown: "withheld_now_known",
	KnownNowWithheld: "known_now_withheld",
	ParseFailed:      "parse_failed",
	FetchFailed:      "fetch_failed",
}

// String returns the kind name
func (k ResultKind) String() string {
	if name, ok := resultKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// MarshalText renders the kind by name
func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Notifies reports whether subscribers hear about this kind
func (k ResultKind) Notifies() bool {
	return k == PriceChanged || k == WithheldNowKnown || k == KnownNowWithheld
}

// Result is the outcome of reconciling one tracked item
type Result struct {
	Kind ResultKind
	// Item is the stored snapshot after any writes
	Item        models.TrackedItem
	Old         models.Price
	New         models.Price
	NameChanged bool
	// Err is set for ParseFailed and FetchFailed
	Err error
}

// Scraper fetches and parses one upstream page
type Scraper interface {
	Scrape(ctx context.Context, variant models.Variant, url string) (*crawler.ScrapedItem, error)
}

// Reconciler compares fresh scrapes with the stored snapshot and persists changes
type Reconciler struct {
	repo    storage.Repository
	scraper Scraper
	locks   *KeyedMutex
}

// NewReconciler creates a reconciler. locks may be shared with other writers.
func NewReconciler(repo storage.Repository, scraper Scraper, locks *KeyedMutex) *Reconciler {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &Reconciler{repo: repo, scraper: scraper, locks: locks}
}

// Reconcile re-scrapes a stored item and records what changed. Scrape
// failures are reported in the Result and leave the stored item untouched.
// The error return is reserved for repository failures, including a
// missing item.
func (r *Reconciler) Reconcile(ctx context.Context, variant models.Variant, id int64) (Result, error) {
	unlock := r.locks.Lock(models.ItemKey(variant, id))
	defer unlock()

	log := logger.ForTracker().WithFields(logger.Fields{"variant": variant.String(), "item_id": id})

	stored, err := r.repo.GetItem(ctx, variant, id)
	if err != nil {
		return Result{}, err
	}

	result := Result{Kind: Unchanged, Item: stored, Old: stored.Price, New: stored.Price}

	scraped, err := r.scraper.Scrape(ctx, variant, stored.URL)
	if err != nil {
		result.Err = err
		if errors.Is(err, apperrors.ErrTransport) {
			result.Kind = FetchFailed
			log.Warn().Err(err).Str("url", stored.URL).Msg("Fetch failed, keeping stored item")
		} else {
			result.Kind = ParseFailed
			log.Warn().Err(err).Str("url", stored.URL).Msg("Parse failed, keeping stored item")
		}
		return result, nil
	}

	var name string
	if scraped.Name != "" && scraped.Name != stored.Name {
		name = scraped.Name
	}
	result.New = scraped.Price
	priceChanged := !stored.Price.Equal(scraped.Price)

	if name == "" && !priceChanged {
		return result, nil
	}

	// Name and price are written together so a failure leaves the stored item as it was
	var price *models.Price
	if priceChanged {
		price = &scraped.Price
	}
	if err := r.repo.UpdateItem(ctx, variant, id, name, price); err != nil {
		return result, err
	}

	if name != "" {
		result.Item.Name = name
		result.NameChanged = true
		log.Debug().Str("old_name", stored.Name).Str("new_name", name).Msg("Name updated")
	}
	if !priceChanged {
		return result, nil
	}

	result.Item.Price = scraped.Price
	result.Kind = classify(stored.Price, scraped.Price)

	log.Info().
		Str("old_price", stored.Price.String()).
		Str("new_price", scraped.Price.String()).
		Str("kind", result.Kind.String()).
		Msg("Price updated")

	return result, nil
}

// classify names the transition between two unequal prices. A stored
// unknown price is a silent baseline.
func classify(prev, next models.Price) ResultKind {
	switch {
	case prev.State == models.PriceUnknown:
		return Unchanged
	case prev.IsWithheld() && next.IsKnown():
		return WithheldNowKnown
	case prev.IsKnown() && next.IsWithheld():
		return KnownNowWithheld
	case prev.IsKnown() && next.IsKnown():
		return PriceChanged
	}
	return Unchanged
}
