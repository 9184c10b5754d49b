package crawler

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jodli/geizhalsbot/internal/models"
	apperrors "github.com/jodli/geizhalsbot/pkg/errors"

	"github.com/shopspring/decimal"
)

var (
	// "12,--" is how the upstream marks a price it does not disclose
	withheldPriceRegex = regexp.MustCompile(`^(?:[0-9]{1,3}(?:\.[0-9]{3})+|[0-9]+),-+$`)
	// "62,80" and "1.299,00"
	decimalPriceRegex = regexp.MustCompile(`^(?:[0-9]{1,3}(?:\.[0-9]{3})+|[0-9]+),[0-9]{1,2}$`)
)

// NormalizePrice converts locale formatted price text such as "€ 62,80"
// into an exact decimal, or the withheld sentinel for "€ 12,--".
func NormalizePrice(raw string) (models.Price, error) {
	// Cut off the currency lead before the real price
	text := strings.TrimLeftFunc(strings.TrimSpace(raw), func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	text = strings.TrimSpace(text)

	switch {
	case withheldPriceRegex.MatchString(text):
		return models.WithheldPrice(), nil
	case decimalPriceRegex.MatchString(text):
		text = strings.ReplaceAll(text, ".", "")
		text = strings.Replace(text, ",", ".", 1)
		amount, err := decimal.NewFromString(text)
		if err != nil {
			return models.UnknownPrice(), apperrors.NewUnparseablePrice("", raw)
		}
		return models.KnownPrice(amount), nil
	default:
		return models.UnknownPrice(), apperrors.NewUnparseablePrice("", raw)
	}
}
