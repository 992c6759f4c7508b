package enums

// PaymentMethodType classifies the funding source behind an allocation.
type PaymentMethodType string

const (
	PaymentMethodTypeCard   PaymentMethodType = "card"
	PaymentMethodTypeWallet PaymentMethodType = "wallet"
	PaymentMethodTypeUPI    PaymentMethodType = "upi"
	PaymentMethodTypeBank   PaymentMethodType = "bank"
)

var paymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypeCard,
	PaymentMethodTypeWallet,
	PaymentMethodTypeUPI,
	PaymentMethodTypeBank,
}

func (p PaymentMethodType) String() string { return string(p) }

func (p PaymentMethodType) IsValid() bool { return oneOf(p, paymentMethodTypes) }

// ParsePaymentMethodType is case-insensitive.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	return parse("payment method type", value, paymentMethodTypes, lowerTrim)
}
