package models

import (
	"regexp"
	"strconv"

	apperrors "github.com/jodli/geizhalsbot/pkg/errors"
)

// Variant tags a tracked item as either a wishlist or a single product.
type Variant string

const (
	Wishlist Variant = "wishlist"
	Product  Variant = "product"
)

// Variants lists every known variant in check order.
var Variants = []Variant{Wishlist, Product}

var (
	wishlistURLPattern = regexp.MustCompile(`^https://geizhals\.(?:de|at|eu)/\?cat=WL-(?P<id>[0-9]+)(?:[&#].*)?$`)
	productURLPattern  = regexp.MustCompile(`^https://geizhals\.(?:de|at|eu)/(?:[0-9a-z-]+-)?a(?P<id>[0-9]+)(?:\.html)?(?:[?#].*)?$`)
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == Wishlist || v == Product
}

// String returns the variant name
func (v Variant) String() string {
	return string(v)
}

// URLPattern returns the upstream URL pattern for the variant.
func (v Variant) URLPattern() *regexp.Regexp {
	if v == Product {
		return productURLPattern
	}
	return wishlistURLPattern
}

// ValidateURL returns raw unchanged if it matches the variant pattern.
func (v Variant) ValidateURL(raw string) (string, error) {
	if !v.Valid() || !v.URLPattern().MatchString(raw) {
		return "", apperrors.NewInvalidURL(raw)
	}
	return raw, nil
}

// IDFromURL parses the upstream identifier out of a URL of this variant.
func (v Variant) IDFromURL(raw string) (int64, error) {
	if !v.Valid() {
		return 0, apperrors.NewInvalidURL(raw)
	}
	pattern := v.URLPattern()
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, apperrors.NewInvalidURL(raw)
	}
	id, err := strconv.ParseInt(match[pattern.SubexpIndex("id")], 10, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrorTypeInvalidURL, raw, "identifier out of range", err)
	}
	return id, nil
}

// NotFoundErr returns the sentinel used when an item of this variant is absent.
func (v Variant) NotFoundErr() error {
	if v == Product {
		return apperrors.ErrProductNotFound
	}
	return apperrors.ErrWishlistNotFound
}

// ParseVariantURL resolves which variant a URL belongs to.
func ParseVariantURL(raw string) (Variant, error) {
	for _, v := range Variants {
		if v.URLPattern().MatchString(raw) {
			return v, nil
		}
	}
	return "", apperrors.NewInvalidURL(raw)
}
