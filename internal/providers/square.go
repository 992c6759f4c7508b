package providers

import (
	"context"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/square"
)

// SquarePaymentCreator is implemented by *square.Client.
type SquarePaymentCreator interface {
	CreatePayment(ctx context.Context, req square.PaymentRequest) (*sq.Payment, error)
}

// SquareAdapter settles allocations with Square Payments. The allocation id is
// both the reference id and the idempotency key.
type SquareAdapter struct {
	client SquarePaymentCreator
}

func NewSquareAdapter(client SquarePaymentCreator) (*SquareAdapter, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square client required")
	}
	return &SquareAdapter{client: client}, nil
}

func (a *SquareAdapter) Provider() enums.Provider {
	return enums.ProviderSquare
}

func (a *SquareAdapter) Settle(ctx context.Context, req SettleRequest) (Outcome, error) {
	source := strings.TrimSpace(req.SourceRef)
	if source == "" {
		return Failed("square payment requires a card source"), nil
	}

	payment, err := a.client.CreatePayment(ctx, square.PaymentRequest{
		Amount:         req.Amount,
		Currency:       req.Currency.String(),
		SourceID:       source,
		IdempotencyKey: req.AllocationID.String(),
		ReferenceID:    req.AllocationID.String(),
		Note:           describe(req),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return Failed(typed.Message()), nil
		}
		return Failed(err.Error()), nil
	}
	return OutcomeForSquareStatus(stringValue(payment.GetID()), stringValue(payment.GetStatus())), nil
}

// OutcomeForSquareStatus maps a Square payment status onto an Outcome.
func OutcomeForSquareStatus(paymentID, status string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETED", "APPROVED":
		return Outcome{Status: OutcomeSucceeded, ProviderRef: paymentID}
	case "FAILED", "CANCELED":
		return Outcome{Status: OutcomeFailed, ProviderRef: paymentID, Reason: "square payment " + strings.ToLower(status)}
	default:
		return Outcome{Status: OutcomePending, ProviderRef: paymentID}
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
