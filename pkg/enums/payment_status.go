package enums

// PaymentStatus is shared by payments and their allocations. PENDING is the
// only non-terminal state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return oneOf(p, paymentStatuses) }

func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentStatusSucceeded || p == PaymentStatusFailed
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", value, paymentStatuses, nil)
}
