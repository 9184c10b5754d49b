package models

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	valid := []struct {
		variant Variant
		url     string
		id      int64
	}{
		{Wishlist, "https://geizhals.de/?cat=WL-962572", 962572},
		{Wishlist, "https://geizhals.at/?cat=WL-123456", 123456},
		{Wishlist, "https://geizhals.eu/?cat=WL-1&hloc=at", 1},
		{Product, "https://geizhals.de/a123456", 123456},
		{Product, "https://geizhals.at/a962572.html", 962572},
		{Product, "https://geizhals.de/samsung-ssd-970-evo-plus-1tb-a1992420.html", 1992420},
	}
	for _, tc := range valid {
		t.Run(tc.url, func(t *testing.T) {
			got, err := tc.variant.ValidateURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.url, got)

			id, err := tc.variant.IDFromURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.id, id)

			v, err := ParseVariantURL(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.variant, v)
		})
	}

	invalid := []struct {
		variant Variant
		url     string
	}{
		{Wishlist, "https://geizhals.de/a123456"},
		{Wishlist, "http://geizhals.de/?cat=WL-962572"},
		{Wishlist, "https://geizhals.com/?cat=WL-962572"},
		{Wishlist, "https://geizhals.de/?cat=WL-"},
		{Wishlist, "not a url"},
		{Product, "https://geizhals.de/?cat=WL-962572"},
		{Product, "https://example.com/a123456"},
		{Product, ""},
	}
	for _, tc := range invalid {
		t.Run("invalid "+tc.url, func(t *testing.T) {
			_, err := tc.variant.ValidateURL(tc.url)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidURL))
		})
	}

	_, err := ParseVariantURL("https://example.com/")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidURL))
}

func TestPriceEqual(t *testing.T) {
	assert.True(t, MustParsePrice("62.80").Equal(MustParsePrice("62.8")))
	sum := decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))
	assert.True(t, KnownPrice(sum).Equal(MustParsePrice("0.3")))
	assert.False(t, MustParsePrice("50.00").Equal(MustParsePrice("45.00")))
	assert.False(t, WithheldPrice().Equal(MustParsePrice("12")))
	assert.True(t, WithheldPrice().Equal(WithheldPrice()))
	assert.False(t, UnknownPrice().Equal(WithheldPrice()))
}

func TestPriceString(t *testing.T) {
	assert.Equal(t, "62.80", MustParsePrice("62.8").String())
	assert.Equal(t, "withheld", WithheldPrice().String())
	assert.Equal(t, "unknown", UnknownPrice().String())

	data, err := json.Marshal(TrackedItem{Variant: Wishlist, ID: 1, Name: "x", Price: MustParsePrice("1.5")})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":"1.50"`)
	assert.Contains(t, string(data), `"variant":"wishlist"`)
}

func TestItemKey(t *testing.T) {
	item := TrackedItem{Variant: Product, ID: 42}
	assert.Equal(t, "product:42", item.Key())
	assert.Equal(t, apperrors.ErrProductNotFound, Product.NotFoundErr())
	assert.Equal(t, apperrors.ErrWishlistNotFound, Wishlist.NotFoundErr())
}

func TestParsePrice(t *testing.T) {
	for _, p := range []Price{MustParsePrice("62.80"), MustParsePrice("1249"), WithheldPrice(), UnknownPrice()} {
		parsed, err := ParsePrice(p.String())
		require.NoError(t, err)
		assert.True(t, p.Equal(parsed), p.String())
	}

	_, err := ParsePrice("12,80")
	assert.Error(t, err)
}
