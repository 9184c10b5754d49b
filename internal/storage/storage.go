// Package storage defines the persistence contract for tracked items,
// users, subscriptions and price history.
package storage

import (
	"context"

	"github.com/jodli/geizhalsbot/internal/models"
)

// Repository persists tracked items and their subscribers.
//
// Item lookups return the variant's not-found error (ErrWishlistNotFound or
// ErrProductNotFound) when no row exists. Every write is atomic.
type Repository interface {
	// UpsertItem inserts the item unless one with the same (variant, id)
	// exists. It reports whether a row was created.
	UpsertItem(ctx context.Context, item models.TrackedItem) (bool, error)
	IsItemSaved(ctx context.Context, variant models.Variant, id int64) (bool, error)
	GetItem(ctx context.Context, variant models.Variant, id int64) (models.TrackedItem, error)
	// UpdateItemPrice stores the new price and appends it to the price history.
	UpdateItemPrice(ctx context.Context, variant models.Variant, id int64, price models.Price) error
	UpdateItemName(ctx context.Context, variant models.Variant, id int64, name string) error
	// UpdateItem stores a new name and price in one write. An empty name or a
	// nil price keeps the stored value.
	UpdateItem(ctx context.Context, variant models.Variant, id int64, name string, price *models.Price) error
	// RemoveItem deletes the item together with its subscriptions and history.
	RemoveItem(ctx context.Context, variant models.Variant, id int64) error
	ListItems(ctx context.Context, variant models.Variant) ([]models.TrackedItem, error)

	// Subscribe returns ErrAlreadySubscribed if the pair already exists.
	Subscribe(ctx context.Context, userID int64, variant models.Variant, itemID int64) error
	// Unsubscribe returns ErrNotSubscribed if the pair does not exist.
	Unsubscribe(ctx context.Context, userID int64, variant models.Variant, itemID int64) error
	IsSubscriber(ctx context.Context, userID int64, variant models.Variant, itemID int64) (bool, error)
	ListSubscribers(ctx context.Context, variant models.Variant, itemID int64) ([]int64, error)
	CountSubscriptions(ctx context.Context, userID int64, variant models.Variant) (int, error)
	ListItemsForUser(ctx context.Context, userID int64, variant models.Variant) ([]models.TrackedItem, error)

	// UpsertUser inserts the user unless the id exists and reports whether a row was created.
	UpsertUser(ctx context.Context, user models.User) (bool, error)
	GetUser(ctx context.Context, id int64) (models.User, error)

	// PriceHistory returns the recorded prices of an item, oldest first.
	PriceHistory(ctx context.Context, variant models.Variant, id int64) ([]models.PricePoint, error)

	Close() error
}
