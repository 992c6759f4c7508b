package enums

// PaymentMode describes how a collection total is divided among payers.
type PaymentMode string

const (
	PaymentModeSplit  PaymentMode = "split"
	PaymentModeCustom PaymentMode = "custom"
	PaymentModeSelf   PaymentMode = "self-pay"
)

var paymentModes = []PaymentMode{PaymentModeSplit, PaymentModeCustom, PaymentModeSelf}

func (p PaymentMode) String() string { return string(p) }

func (p PaymentMode) IsValid() bool { return oneOf(p, paymentModes) }

// ParsePaymentMode matches exactly; "SPLIT" is rejected.
func ParsePaymentMode(value string) (PaymentMode, error) {
	return parse("payment mode", value, paymentModes, nil)
}
