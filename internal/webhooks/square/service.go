package squarewebhook

import (
	"context"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
)

type allocationSettler interface {
	SettleAllocation(ctx context.Context, in payments.AllocationSettlement) (*payments.SettlementResult, error)
}

type ServiceParams struct {
	Allocations allocationSettler
	Metrics     *metrics.PaymentMetrics
	Logger      *logger.Logger
}

// Service settles multi-card allocations from Square payment notifications.
type Service struct {
	allocations allocationSettler
	metrics     *metrics.PaymentMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Allocations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation settler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		allocations: params.Allocations,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

type SquareWebhookEvent struct {
	MerchantID string            `json:"merchant_id"`
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	Data       SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *sq.Payment `json:"payment"`
}

// HandleEvent applies payment.created / payment.updated notifications whose
// reference id names an allocation. Everything else is acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	eventType := strings.ToLower(strings.TrimSpace(event.Type))
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.EventID, "event_type": eventType})

	switch eventType {
	case "payment.created", "payment.updated":
	default:
		s.metrics.WebhookEvent(enums.ProviderSquare.String(), eventType, "ignored")
		return nil
	}

	outcome, err := s.paymentChanged(ctx, event)
	if err != nil {
		s.metrics.WebhookEvent(enums.ProviderSquare.String(), eventType, "error")
		return err
	}
	s.metrics.WebhookEvent(enums.ProviderSquare.String(), eventType, outcome)
	return nil
}

func (s *Service) paymentChanged(ctx context.Context, event *SquareWebhookEvent) (string, error) {
	payment := event.Data.Object.Payment
	if payment == nil {
		s.logg.Warn(ctx, "square payment event without payment object; dropping")
		return "dropped", nil
	}
	reference := strings.TrimSpace(value(payment.GetReferenceID()))
	allocationID, err := uuid.Parse(reference)
	if err != nil {
		// Payments taken outside multi-card settlement carry no allocation id.
		return "ignored", nil
	}

	paymentRef := value(payment.GetID())
	outcome := providers.OutcomeForSquareStatus(paymentRef, value(payment.GetStatus()))
	if outcome.Status == providers.OutcomePending {
		return "ignored", nil
	}

	res, err := s.allocations.SettleAllocation(ctx, payments.AllocationSettlement{
		AllocationID: allocationID,
		Status:       outcome.Status.PaymentStatus(),
		ProviderRef:  outcome.ProviderRef,
		Reason:       outcome.Reason,
		EventID:      event.EventID,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "square event not applicable; acknowledging")
			return "dropped", nil
		}
		return "", err
	}
	if !res.Applied {
		return "noop", nil
	}
	return "applied", nil
}

func value(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
