package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jodli/geizhalsbot/internal/models"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testWishlist() models.TrackedItem {
	return models.TrackedItem{
		Variant: models.Wishlist,
		ID:      962572,
		Name:    "NIU2E0RRWX",
		URL:     "https://geizhals.de/?cat=WL-962572",
		Price:   models.MustParsePrice("62.80"),
	}
}

func testProduct() models.TrackedItem {
	return models.TrackedItem{
		Variant: models.Product,
		ID:      962572,
		Name:    "Product",
		URL:     "https://geizhals.de/a962572",
		Price:   models.WithheldPrice(),
	}
}

func TestStore_ItemRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, item := range []models.TrackedItem{testWishlist(), testProduct()} {
		saved, err := store.IsItemSaved(ctx, item.Variant, item.ID)
		require.NoError(t, err)
		assert.False(t, saved)

		created, err := store.UpsertItem(ctx, item)
		require.NoError(t, err)
		assert.True(t, created)

		got, err := store.GetItem(ctx, item.Variant, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, item.Name, got.Name)
		assert.Equal(t, item.URL, got.URL)
		assert.Equal(t, item.Variant, got.Variant)
		assert.True(t, item.Price.Equal(got.Price), "%s != %s", item.Price, got.Price)
	}
}

func TestStore_UpsertItemIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)
	assert.True(t, created)

	changed := testWishlist()
	changed.Name = "Other"
	created, err = store.UpsertItem(ctx, changed)
	require.NoError(t, err)
	assert.False(t, created)

	items, err := store.ListItems(ctx, models.Wishlist)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "NIU2E0RRWX", items[0].Name)
}

func TestStore_VariantsAreSeparate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)

	saved, err := store.IsItemSaved(ctx, models.Product, 962572)
	require.NoError(t, err)
	assert.False(t, saved)

	_, err = store.GetItem(ctx, models.Product, 962572)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)

	_, err = store.GetItem(ctx, models.Wishlist, 1)
	assert.ErrorIs(t, err, apperrors.ErrWishlistNotFound)
}

func TestStore_UpdatePriceAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)

	require.NoError(t, store.UpdateItemPrice(ctx, models.Wishlist, 962572, models.MustParsePrice("50.00")))
	require.NoError(t, store.UpdateItemPrice(ctx, models.Wishlist, 962572, models.WithheldPrice()))

	item, err := store.GetItem(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.True(t, item.Price.IsWithheld())

	history, err := store.PriceHistory(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "62.80", history[0].Price.String())
	assert.Equal(t, "50.00", history[1].Price.String())
	assert.True(t, history[2].Price.IsWithheld())
	assert.False(t, history[0].RecordedAt.After(history[2].RecordedAt))

	err = store.UpdateItemPrice(ctx, models.Wishlist, 1, models.MustParsePrice("1"))
	assert.ErrorIs(t, err, apperrors.ErrWishlistNotFound)
}

func TestStore_UnknownPriceHasNoHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := testProduct()
	item.Price = models.UnknownPrice()
	_, err := store.UpsertItem(ctx, item)
	require.NoError(t, err)

	got, err := store.GetItem(ctx, models.Product, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriceUnknown, got.Price.State)

	history, err := store.PriceHistory(ctx, models.Product, item.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_UpdateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)
	require.NoError(t, store.UpdateItemName(ctx, models.Wishlist, 962572, "Renamed"))

	item, err := store.GetItem(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", item.Name)
	assert.Equal(t, "62.80", item.Price.String())

	assert.ErrorIs(t, store.UpdateItemName(ctx, models.Product, 1, "x"), apperrors.ErrProductNotFound)
}

func TestStore_UpdateNameAndPrice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)

	price := models.MustParsePrice("50.00")
	require.NoError(t, store.UpdateItem(ctx, models.Wishlist, 962572, "Renamed", &price))

	item, err := store.GetItem(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", item.Name)
	assert.Equal(t, "50.00", item.Price.String())

	history, err := store.PriceHistory(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Nothing to change is not an error
	require.NoError(t, store.UpdateItem(ctx, models.Wishlist, 962572, "", nil))

	err = store.UpdateItem(ctx, models.Wishlist, 1, "x", &price)
	assert.ErrorIs(t, err, apperrors.ErrWishlistNotFound)
}

func TestStore_Subscriptions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)

	require.NoError(t, store.Subscribe(ctx, 1, models.Wishlist, 962572))
	err = store.Subscribe(ctx, 1, models.Wishlist, 962572)
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubscribed)
	require.NoError(t, store.Subscribe(ctx, 2, models.Wishlist, 962572))

	subscribers, err := store.ListSubscribers(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, subscribers)

	ok, err := store.IsSubscriber(ctx, 1, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsSubscriber(ctx, 1, models.Product, 962572)
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := store.CountSubscriptions(ctx, 1, models.Wishlist)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	items, err := store.ListItemsForUser(ctx, 2, models.Wishlist)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(962572), items[0].ID)

	require.NoError(t, store.Unsubscribe(ctx, 1, models.Wishlist, 962572))
	assert.ErrorIs(t, store.Unsubscribe(ctx, 1, models.Wishlist, 962572), apperrors.ErrNotSubscribed)

	subscribers, err = store.ListSubscribers(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, subscribers)
}

func TestStore_SubscribeMissingItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Subscribe(ctx, 1, models.Wishlist, 5), apperrors.ErrWishlistNotFound)
	assert.ErrorIs(t, store.Subscribe(ctx, 1, models.Product, 5), apperrors.ErrProductNotFound)
}

func TestStore_ConcurrentSubscribe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Subscribe(ctx, 7, models.Wishlist, 962572)
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrAlreadySubscribed):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, duplicates)
}

func TestStore_RemoveItemCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)
	require.NoError(t, store.Subscribe(ctx, 1, models.Wishlist, 962572))

	require.NoError(t, store.RemoveItem(ctx, models.Wishlist, 962572))

	subscribers, err := store.ListSubscribers(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Empty(t, subscribers)

	history, err := store.PriceHistory(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, store.RemoveItem(ctx, models.Wishlist, 962572), apperrors.ErrWishlistNotFound)
}

func TestStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.User{ID: 42, FirstName: "Jo", Username: "jo", LanguageCode: "de"}
	created, err := store.UpsertUser(ctx, user)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.UpsertUser(ctx, models.User{ID: 42, FirstName: "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = store.GetUser(ctx, 43)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geizhals.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.UpsertItem(ctx, testWishlist())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations are already applied on the second open
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	item, err := store.GetItem(ctx, models.Wishlist, 962572)
	require.NoError(t, err)
	assert.Equal(t, "NIU2E0RRWX", item.Name)
}
