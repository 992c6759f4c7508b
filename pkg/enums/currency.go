package enums

import "strings"

// Currency is the ISO 4217 code a collection is denominated in. Amounts are
// always in the currency's minor unit.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"

	DefaultCurrency = CurrencyINR
)

var currencies = []Currency{CurrencyINR, CurrencyUSD, CurrencyEUR, CurrencyGBP}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return oneOf(c, currencies) }

// Lower is the form Stripe expects.
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// ParseCurrency is case-insensitive; blank input yields DefaultCurrency.
func ParseCurrency(value string) (Currency, error) {
	if strings.TrimSpace(value) == "" {
		return DefaultCurrency, nil
	}
	return parse("currency", value, currencies, upperTrim)
}
