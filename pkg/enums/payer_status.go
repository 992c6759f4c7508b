package enums

// PayerStatus moves UNPAID to PAID or CANCELLED and never back.
type PayerStatus string

const (
	PayerStatusUnpaid    PayerStatus = "UNPAID"
	PayerStatusPaid      PayerStatus = "PAID"
	PayerStatusCancelled PayerStatus = "CANCELLED"
)

var payerStatuses = []PayerStatus{PayerStatusUnpaid, PayerStatusPaid, PayerStatusCancelled}

func (p PayerStatus) String() string { return string(p) }

func (p PayerStatus) IsValid() bool { return oneOf(p, payerStatuses) }

func ParsePayerStatus(value string) (PayerStatus, error) {
	return parse("payer status", value, payerStatuses, nil)
}
