// Package tracker implements the scrape, persist and notify pipeline and the
// operations the chat command layer calls.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/internal/storage"
	"github.com/jodli/geizhalsbot/logger"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
)

// Service is the entry point for the command layer and the worker
type Service struct {
	*Reconciler
	*Dispatcher

	repo             storage.Repository
	scraper          Scraper
	locks            *KeyedMutex
	maxSubscriptions int
}

// Options configures a Service
type Options struct {
	// MaxSubscriptionsPerUser limits subscriptions per user and variant. Zero means unlimited.
	MaxSubscriptionsPerUser int
}

// NewService creates a tracker service
func NewService(repo storage.Repository, scraper Scraper, opts Options) *Service {
	locks := NewKeyedMutex()
	return &Service{
		Reconciler:       NewReconciler(repo, scraper, locks),
		Dispatcher:       NewDispatcher(repo),
		repo:             repo,
		scraper:          scraper,
		locks:            locks,
		maxSubscriptions: opts.MaxSubscriptionsPerUser,
	}
}

// TrackResult describes what Track did
type TrackResult struct {
	Item models.TrackedItem
	// Created is true if the item was scraped and stored for the first time
	Created bool
}

// AddUserIfNew stores the user unless it exists
func (s *Service) AddUserIfNew(ctx context.Context, user models.User) (bool, error) {
	return s.repo.UpsertUser(ctx, user)
}

// GetUser loads a stored user
func (s *Service) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// AddWishlistIfNew stores the wishlist unless it exists
func (s *Service) AddWishlistIfNew(ctx context.Context, item models.TrackedItem) (bool, error) {
	item.Variant = models.Wishlist
	return s.addItemIfNew(ctx, item)
}

// AddProductIfNew stores the product unless it exists
func (s *Service) AddProductIfNew(ctx context.Context, item models.TrackedItem) (bool, error) {
	item.Variant = models.Product
	return s.addItemIfNew(ctx, item)
}

func (s *Service) addItemIfNew(ctx context.Context, item models.TrackedItem) (bool, error) {
	if _, err := item.Variant.ValidateURL(item.URL); err != nil {
		return false, err
	}
	id, err := item.Variant.IDFromURL(item.URL)
	if err != nil {
		return false, err
	}
	if id != item.ID {
		return false, apperrors.New(apperrors.ErrorTypeInvalidURL, item.URL,
			fmt.Sprintf("url names %s %d, not %d", item.Variant, id, item.ID), nil)
	}

	unlock := s.locks.Lock(item.Key())
	defer unlock()
	return s.repo.UpsertItem(ctx, item)
}

// SubscribeWishlist subscribes a user to a stored wishlist
func (s *Service) SubscribeWishlist(ctx context.Context, userID, id int64) error {
	return s.subscribe(ctx, userID, models.Wishlist, id)
}

// SubscribeProduct subscribes a user to a stored product
func (s *Service) SubscribeProduct(ctx context.Context, userID, id int64) error {
	return s.subscribe(ctx, userID, models.Product, id)
}

// IsWishlistSubscriber reports whether the user follows the wishlist
func (s *Service) IsWishlistSubscriber(ctx context.Context, userID, id int64) (bool, error) {
	return s.repo.IsSubscriber(ctx, userID, models.Wishlist, id)
}

// IsProductSubscriber reports whether the user follows the product
func (s *Service) IsProductSubscriber(ctx context.Context, userID, id int64) (bool, error) {
	return s.repo.IsSubscriber(ctx, userID, models.Product, id)
}

// GetWishlist loads a stored wishlist
func (s *Service) GetWishlist(ctx context.Context, id int64) (models.TrackedItem, error) {
	return s.repo.GetItem(ctx, models.Wishlist, id)
}

// GetProduct loads a stored product
func (s *Service) GetProduct(ctx context.Context, id int64) (models.TrackedItem, error) {
	return s.repo.GetItem(ctx, models.Product, id)
}

// GetWishlistCount returns how many wishlists the user follows
func (s *Service) GetWishlistCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountSubscriptions(ctx, userID, models.Wishlist)
}

// GetProductCount returns how many products the user follows
func (s *Service) GetProductCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountSubscriptions(ctx, userID, models.Product)
}

// GetWishlistsForUser returns the wishlists the user follows
func (s *Service) GetWishlistsForUser(ctx context.Context, userID int64) ([]models.TrackedItem, error) {
	return s.repo.ListItemsForUser(ctx, userID, models.Wishlist)
}

// GetProductsForUser returns the products the user follows
func (s *Service) GetProductsForUser(ctx context.Context, userID int64) ([]models.TrackedItem, error) {
	return s.repo.ListItemsForUser(ctx, userID, models.Product)
}

// GetWishlistURL returns text unchanged if it is a wishlist URL
func (s *Service) GetWishlistURL(text string) (string, error) {
	return models.Wishlist.ValidateURL(text)
}

// GetProductURL returns text unchanged if it is a product URL
func (s *Service) GetProductURL(text string) (string, error) {
	return models.Product.ValidateURL(text)
}

// ListItems returns every stored item of a variant
func (s *Service) ListItems(ctx context.Context, variant models.Variant) ([]models.TrackedItem, error) {
	return s.repo.ListItems(ctx, variant)
}

// Track validates rawURL, stores the item on first sight and subscribes the
// user to it. Pages that cannot be scraped are rejected before anything is
// stored.
func (s *Service) Track(ctx context.Context, user models.User, rawURL string) (TrackResult, error) {
	variant, err := models.ParseVariantURL(rawURL)
	if err != nil {
		return TrackResult{}, err
	}
	id, err := variant.IDFromURL(rawURL)
	if err != nil {
		return TrackResult{}, err
	}

	log := logger.ForTracker().WithFields(logger.Fields{
		"variant": variant.String(),
		"item_id": id,
		"user_id": user.ID,
	})

	item, created, err := s.ensureItem(ctx, variant, id, rawURL)
	if err != nil {
		return TrackResult{}, err
	}

	if _, err := s.repo.UpsertUser(ctx, user); err != nil {
		return TrackResult{}, err
	}

	if err := s.subscribe(ctx, user.ID, variant, id); err != nil {
		return TrackResult{Item: item, Created: created}, err
	}

	log.Info().Bool("created", created).Msg("Item tracked")
	return TrackResult{Item: item, Created: created}, nil
}

func (s *Service) ensureItem(ctx context.Context, variant models.Variant, id int64, rawURL string) (models.TrackedItem, bool, error) {
	unlock := s.locks.Lock(models.ItemKey(variant, id))
	defer unlock()

	item, err := s.repo.GetItem(ctx, variant, id)
	if err == nil {
		return item, false, nil
	}
	if !errors.Is(err, variant.NotFoundErr()) {
		return models.TrackedItem{}, false, err
	}

	scraped, err := s.scraper.Scrape(ctx, variant, rawURL)
	if err != nil {
		return models.TrackedItem{}, false, err
	}

	item = models.TrackedItem{
		Variant: variant,
		ID:      id,
		Name:    scraped.Name,
		URL:     rawURL,
		Price:   scraped.Price,
	}
	created, err := s.repo.UpsertItem(ctx, item)
	if err != nil {
		return models.TrackedItem{}, false, err
	}
	return item, created, nil
}

func (s *Service) subscribe(ctx context.Context, userID int64, variant models.Variant, id int64) error {
	// Count and insert under one lock so the limit holds for parallel requests
	unlock := s.locks.Lock("user:" + strconv.FormatInt(userID, 10))
	defer unlock()

	if s.maxSubscriptions > 0 {
		subscribed, err := s.repo.IsSubscriber(ctx, userID, variant, id)
		if err != nil {
			return err
		}
		if subscribed {
			return apperrors.ErrAlreadySubscribed
		}

		count, err := s.repo.CountSubscriptions(ctx, userID, variant)
		if err != nil {
			return err
		}
		if count >= s.maxSubscriptions {
			return apperrors.ErrSubscriptionLimit
		}
	}

	return s.repo.Subscribe(ctx, userID, variant, id)
}

// Untrack removes the user's subscription to an item
func (s *Service) Untrack(ctx context.Context, userID int64, variant models.Variant, id int64) error {
	return s.repo.Unsubscribe(ctx, userID, variant, id)
}

// RemoveItem deletes an item with all its subscriptions
func (s *Service) RemoveItem(ctx context.Context, variant models.Variant, id int64) error {
	unlock := s.locks.Lock(models.ItemKey(variant, id))
	defer unlock()
	return s.repo.RemoveItem(ctx, variant, id)
}

// PriceHistory returns the recorded prices of an item, oldest first
func (s *Service) PriceHistory(ctx context.Context, variant models.Variant, id int64) ([]models.PricePoint, error) {
	return s.repo.PriceHistory(ctx, variant, id)
}
