package crawler

import (
	"fmt"
	"os"

	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/logger"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"

	"gopkg.in/yaml.v3"
)

// DefaultSelectors returns the built-in selectors for every variant
func DefaultSelectors() SelectorSet {
	return SelectorSet{
		models.Wishlist: {
			Price: "div.productlist__footer-cell span.gh_price",
			Name:  "h1.gh_listtitle",
			// Wishlist pages carry no usable id, it comes from the URL
			ID: "",
		},
		models.Product: {
			Price: "div#offer__price-0 span.gh_price",
			Name:  "h1.variant__header__headline",
			ID:    "",
		},
	}
}

// selectorFile is the layout of a selectors YAML file:
//
//	wishlist:
//	  price: "div.productlist__footer-cell span.gh_price"
//	product:
//	  name: "h1.variant__header__headline"
type selectorFile map[string]Selectors

// LoadSelectors reads selector overrides from a YAML file and merges them
// over the defaults. An empty path returns the defaults.
func LoadSelectors(path string) (SelectorSet, error) {
	selectors := DefaultSelectors()
	if path == "" {
		return selectors, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfiguration("failed to read selectors file", err)
	}

	return mergeSelectors(selectors, data)
}

func mergeSelectors(selectors SelectorSet, data []byte) (SelectorSet, error) {
	var overrides selectorFile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, apperrors.NewConfiguration("failed to parse selectors file", err)
	}

	for name, override := range overrides {
		variant := models.Variant(name)
		if !variant.Valid() {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("unknown variant %q in selectors file", name), nil)
		}

		current := selectors[variant]
		if override.Price != "" {
			current.Price = override.Price
		}
		if override.Name != "" {
			current.Name = override.Name
		}
		if override.ID != "" {
			current.ID = override.ID
		}
		selectors[variant] = current

		logger.ForCrawler(name).Debug().
			Str("price", current.Price).
			Str("name", current.Name).
			Str("id", current.ID).
			Msg("Selectors overridden")
	}

	for _, variant := range models.Variants {
		if selectors[variant].Price == "" {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("no price selector for %s", variant), nil)
		}
	}

	return selectors, nil
}
