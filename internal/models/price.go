package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// PriceState distinguishes a numeric price from the upstream sentinels.
type PriceState int

const (
	// PriceUnknown means no price could be determined yet.
	PriceUnknown PriceState = iota
	// PriceKnown carries a numeric amount.
	PriceKnown
	// PriceWithheld is the upstream "12,--" convention for an undisclosed price.
	PriceWithheld
)

// PriceScale is the number of fractional digits prices are compared at.
const PriceScale = 2

// Price is a three-state price value.
type Price struct {
	State  PriceState
	Amount decimal.Decimal
}

// KnownPrice returns a numeric price rounded to PriceScale digits.
func KnownPrice(amount decimal.Decimal) Price {
	return Price{State: PriceKnown, Amount: amount.Round(PriceScale)}
}

// MustParsePrice builds a known price from a decimal string. It panics on bad input.
func MustParsePrice(s string) Price {
	return KnownPrice(decimal.RequireFromString(s))
}

// WithheldPrice returns the withheld sentinel.
func WithheldPrice() Price {
	return Price{State: PriceWithheld}
}

// UnknownPrice returns the unknown state.
func UnknownPrice() Price {
	return Price{State: PriceUnknown}
}

// IsKnown reports whether the price carries a numeric amount.
func (p Price) IsKnown() bool { return p.State == PriceKnown }

// IsWithheld reports whether the price is the withheld sentinel.
func (p Price) IsWithheld() bool { return p.State == PriceWithheld }

// Equal compares state and, for known prices, the exact decimal amount.
func (p Price) Equal(o Price) bool {
	if p.State != o.State {
		return false
	}
	if p.State != PriceKnown {
		return true
	}
	return p.Amount.Round(PriceScale).Equal(o.Amount.Round(PriceScale))
}

// String renders the price the way it is persisted.
func (p Price) String() string {
	switch p.State {
	case PriceKnown:
		return p.Amount.StringFixed(PriceScale)
	case PriceWithheld:
		return "withheld"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the price as its persisted string form.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// ParsePrice reverses String. The empty string and "unknown" map to the unknown state.
func ParsePrice(s string) (Price, error) {
	switch s {
	case "", "unknown":
		return UnknownPrice(), nil
	case "withheld":
		return WithheldPrice(), nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return UnknownPrice(), err
	}
	return KnownPrice(amount), nil
}
