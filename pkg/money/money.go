// Package money renders minor-unit integer amounts for display. Stored and
// computed amounts always stay int64 minor units; decimals only appear at the
// response edge.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// exponents lists the minor-unit exponent per currency. Every supported
// currency currently uses two decimal places.
var exponents = map[enums.Currency]int32{
	enums.CurrencyINR: 2,
	enums.CurrencyUSD: 2,
	enums.CurrencyEUR: 2,
	enums.CurrencyGBP: 2,
}

var symbols = map[enums.Currency]string{
	enums.CurrencyINR: "₹",
	enums.CurrencyUSD: "$",
	enums.CurrencyEUR: "€",
	enums.CurrencyGBP: "£",
}

// Amount is a display-ready representation of a minor-unit value.
type Amount struct {
	Minor    int64  `json:"minor"`
	Major    string `json:"major"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

// Exponent returns the number of minor-unit digits for currency.
func Exponent(currency enums.Currency) int32 {
	if exp, ok := exponents[currency]; ok {
		return exp
	}
	return 2
}

// ToMajor converts minor units to a decimal in major units.
func ToMajor(minor int64, currency enums.Currency) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-Exponent(currency))
}

// FromMajor converts a major-unit decimal string (e.g. "12.50") into minor
// units. Values with more precision than the currency allows are rejected by
// the caller through the returned exact flag.
func FromMajor(value string, currency enums.Currency) (int64, bool, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return 0, false, err
	}
	shifted := parsed.Shift(Exponent(currency))
	exact := shifted.Equal(shifted.Truncate(0))
	return shifted.IntPart(), exact, nil
}

// Format renders minor as "<symbol><major>" with the currency's fixed precision.
func Format(minor int64, currency enums.Currency) string {
	major := ToMajor(minor, currency).StringFixed(Exponent(currency))
	if symbol, ok := symbols[currency]; ok {
		return symbol + major
	}
	return major + " " + currency.String()
}

// New builds the JSON display value for minor units.
func New(minor int64, currency enums.Currency) Amount {
	return Amount{
		Minor:    minor,
		Major:    ToMajor(minor, currency).StringFixed(Exponent(currency)),
		Currency: currency.String(),
		Display:  Format(minor, currency),
	}
}
