package enums

// Provider names the processor that settles a payment or allocation.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderSquare Provider = "square"
	ProviderPayPal Provider = "paypal"
	ProviderVenmo  Provider = "venmo"
	ProviderUPI    Provider = "upi"

	// ProviderMultiCard marks the parent payment of a multi-card split.
	ProviderMultiCard Provider = "multi-card"
)

var providers = []Provider{
	ProviderStripe,
	ProviderSquare,
	ProviderPayPal,
	ProviderVenmo,
	ProviderUPI,
	ProviderMultiCard,
}

func (p Provider) String() string { return string(p) }

func (p Provider) IsValid() bool { return oneOf(p, providers) }

// ParseProvider is case-insensitive.
func ParseProvider(value string) (Provider, error) {
	return parse("provider", value, providers, lowerTrim)
}
