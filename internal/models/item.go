package models

import (
	"fmt"
	"time"
)

// TrackedItem is a wishlist or product whose price is being watched.
type TrackedItem struct {
	Variant Variant `json:"variant"`
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	URL     string  `json:"url"`
	Price   Price   `json:"price"`
}

// Key identifies the item across variants, e.g. "wishlist:962572".
func (i TrackedItem) Key() string {
	return ItemKey(i.Variant, i.ID)
}

// ItemKey formats the cross-variant key of an item.
func ItemKey(v Variant, id int64) string {
	return fmt.Sprintf("%s:%d", v, id)
}

// User is a chat user interacting with the bot.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Subscription links a user to a tracked item.
type Subscription struct {
	UserID  int64
	ItemID  int64
	Variant Variant
}

// PricePoint is one entry of an item's price history.
type PricePoint struct {
	Price      Price
	RecordedAt time.Time
}
