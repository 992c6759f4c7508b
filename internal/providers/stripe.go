package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

// Metadata keys written on Stripe objects and read back by the webhook.
const (
	MetaAllocationID = "allocationId"
	MetaPaymentID    = "paymentId"
	MetaPayerID      = "payerId"
	MetaCollectionID = "collectionId"
	MetaPayerSlug    = "payerSlug"
)

// StripeParams configure the Stripe adapter.
type StripeParams struct {
	PaymentIntents PaymentIntentCreator
	Checkout       CheckoutSessionCreator
	BaseURL        string
	Logger         *logger.Logger
}

// StripeAdapter settles allocations with PaymentIntents and opens Checkout sessions.
type StripeAdapter struct {
	intents  PaymentIntentCreator
	checkout CheckoutSessionCreator
	baseURL  string
	logg     *logger.Logger
}

func NewStripeAdapter(params StripeParams) (*StripeAdapter, error) {
	if params.PaymentIntents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe payment intent client required")
	}
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe checkout client required")
	}
	return &StripeAdapter{
		intents:  params.PaymentIntents,
		checkout: params.Checkout,
		baseURL:  strings.TrimRight(strings.TrimSpace(params.BaseURL), "/"),
		logg:     params.Logger,
	}, nil
}

func (a *StripeAdapter) Provider() enums.Provider {
	return enums.ProviderStripe
}

// Settle creates a PaymentIntent for the allocation. The allocation id is the
// idempotency key so a retried settle never charges twice.
func (a *StripeAdapter) Settle(ctx context.Context, req SettleRequest) (Outcome, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency.String())),
		Description: stripe.String(describe(req)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if strings.HasPrefix(req.SourceRef, "pm_") {
		params.PaymentMethod = stripe.String(req.SourceRef)
		params.Confirm = stripe.Bool(true)
		params.OffSession = stripe.Bool(true)
	}
	params.SetIdempotencyKey(req.AllocationID.String())
	params.AddMetadata(MetaAllocationID, req.AllocationID.String())
	params.AddMetadata(MetaPaymentID, req.PaymentID.String())
	params.AddMetadata(MetaPayerID, req.PayerID.String())
	params.AddMetadata(MetaCollectionID, req.CollectionID.String())

	intent, err := a.intents.New(ctx, params)
	if err != nil {
		return Failed(stripeErrorMessage(err)), nil
	}
	return outcomeForIntent(intent), nil
}

func outcomeForIntent(intent *stripe.PaymentIntent) Outcome {
	if intent == nil {
		return Failed("stripe returned no payment intent")
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return Outcome{Status: OutcomeSucceeded, ProviderRef: intent.ID}
	case stripe.PaymentIntentStatusCanceled:
		return Outcome{Status: OutcomeFailed, ProviderRef: intent.ID, Reason: "payment intent canceled"}
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		reason := "payment method required"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			reason = intent.LastPaymentError.Msg
			return Outcome{Status: OutcomeFailed, ProviderRef: intent.ID, Reason: reason}
		}
		return Outcome{Status: OutcomePending, ProviderRef: intent.ID, Reason: reason}
	default:
		return Outcome{Status: OutcomePending, ProviderRef: intent.ID}
	}
}

func stripeErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		if stripeErr.Code != "" {
			return fmt.Sprintf("%s (%s)", stripeErr.Msg, stripeErr.Code)
		}
		return stripeErr.Msg
	}
	return err.Error()
}

// CreateCheckout opens a Checkout session for the payer's full share. The
// completion webhook resolves the payer from the session metadata.
func (a *StripeAdapter) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	payURL := fmt.Sprintf("%s/pay/%s", a.baseURL, req.PayerSlug)
	metadata := map[string]string{
		MetaPayerID:      req.PayerID.String(),
		MetaCollectionID: req.CollectionID.String(),
		MetaPayerSlug:    req.PayerSlug,
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency.String())),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.CollectionTitle),
						Description: stripe.String(fmt.Sprintf("Payment for %s - Split payment", req.PayerName)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(payURL + "?success=true"),
		CancelURL:  stripe.String(payURL + "?canceled=true"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if req.PayerEmail != "" {
		params.CustomerEmail = stripe.String(req.PayerEmail)
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	sess, err := a.checkout.New(ctx, params)
	if err != nil {
		if a.logg != nil {
			a.logg.Error(a.logg.WithPayerID(ctx, req.PayerID.String()), "stripe checkout session failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create checkout session")
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func describe(req SettleRequest) string {
	if req.MethodName != "" {
		return fmt.Sprintf("Split payment allocation via %s", req.MethodName)
	}
	if req.Description != "" {
		return req.Description
	}
	return "Split payment allocation"
}
