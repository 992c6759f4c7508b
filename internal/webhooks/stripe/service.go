package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
)

const (
	outcomeApplied = "applied"
	outcomeNoop    = "noop"
	outcomeDropped = "dropped"
	outcomeIgnored = "ignored"
)

type checkoutCompleter interface {
	CompleteCheckout(ctx context.Context, in payments.CheckoutCompletion) (*payments.CompletionResult, error)
}

type allocationSettler interface {
	SettleAllocation(ctx context.Context, in payments.AllocationSettlement) (*payments.SettlementResult, error)
}

type ServiceParams struct {
	Checkout    checkoutCompleter
	Allocations allocationSettler
	Metrics     *metrics.PaymentMetrics
	Logger      *logger.Logger
}

// Service applies Stripe events to payers and allocations.
type Service struct {
	checkout    checkoutCompleter
	allocations allocationSettler
	metrics     *metrics.PaymentMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout completer required")
	}
	if params.Allocations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation settler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		checkout:    params.Checkout,
		allocations: params.Allocations,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// HandleEvent dispatches a verified event. Events that cannot be tied to a
// payer or allocation are logged and acknowledged; only transient failures
// return an error so Stripe redelivers.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})

	var (
		outcome string
		err     error
	)
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		outcome, err = s.checkoutCompleted(ctx, event, &session)
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		outcome, err = s.intentSettled(ctx, event, &intent)
	default:
		outcome = outcomeIgnored
	}
	if err != nil {
		s.metrics.WebhookEvent(enums.ProviderStripe.String(), string(event.Type), "error")
		return err
	}
	s.metrics.WebhookEvent(enums.ProviderStripe.String(), string(event.Type), outcome)
	return nil
}

func (s *Service) checkoutCompleted(ctx context.Context, event *stripe.Event, session *stripe.CheckoutSession) (string, error) {
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logg.Info(ctx, "checkout session completed without payment; awaiting async result")
		return outcomeIgnored, nil
	}
	payerID, payerErr := uuid.Parse(strings.TrimSpace(session.Metadata[providers.MetaPayerID]))
	collectionID, collectionErr := uuid.Parse(strings.TrimSpace(session.Metadata[providers.MetaCollectionID]))
	if payerErr != nil || collectionErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "session_id", session.ID), "checkout session missing payer metadata; dropping event")
		return outcomeDropped, nil
	}

	ref := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		ref = session.PaymentIntent.ID
	}
	res, err := s.checkout.CompleteCheckout(ctx, payments.CheckoutCompletion{
		PayerID:      payerID,
		CollectionID: collectionID,
		Provider:     enums.ProviderStripe,
		ProviderRef:  ref,
		Amount:       session.AmountTotal,
		EventID:      event.ID,
	})
	if err != nil {
		return s.acknowledgeDomainError(ctx, err)
	}
	if !res.Applied {
		return outcomeNoop, nil
	}
	return outcomeApplied, nil
}

func (s *Service) intentSettled(ctx context.Context, event *stripe.Event, intent *stripe.PaymentIntent) (string, error) {
	rawAllocation := strings.TrimSpace(intent.Metadata[providers.MetaAllocationID])
	if rawAllocation == "" {
		// Hosted checkout intents settle through checkout.session.completed.
		return outcomeIgnored, nil
	}
	allocationID, err := uuid.Parse(rawAllocation)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "payment_intent", intent.ID), "payment intent carries an invalid allocation id; dropping event")
		return outcomeDropped, nil
	}

	in := payments.AllocationSettlement{
		AllocationID: allocationID,
		Status:       enums.PaymentStatusSucceeded,
		ProviderRef:  intent.ID,
		EventID:      event.ID,
	}
	if raw := strings.TrimSpace(intent.Metadata[providers.MetaPaymentID]); raw != "" {
		if paymentID, err := uuid.Parse(raw); err == nil {
			in.PaymentID = &paymentID
		}
	}
	if event.Type == stripe.EventTypePaymentIntentPaymentFailed {
		in.Status = enums.PaymentStatusFailed
		in.Reason = "payment failed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			in.Reason = intent.LastPaymentError.Msg
		}
	}

	res, err := s.allocations.SettleAllocation(ctx, in)
	if err != nil {
		return s.acknowledgeDomainError(ctx, err)
	}
	if !res.Applied {
		return outcomeNoop, nil
	}
	return outcomeApplied, nil
}

// acknowledgeDomainError swallows errors a redelivery cannot fix.
func (s *Service) acknowledgeDomainError(ctx context.Context, err error) (string, error) {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound),
		pkgerrors.IsCode(err, pkgerrors.CodeValidation),
		pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "stripe event not applicable; acknowledging")
		return outcomeDropped, nil
	default:
		return "", err
	}
}
