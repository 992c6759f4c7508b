package providers

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgstripe "github.com/amaykorade/zakapay-hackathon/pkg/stripe"
)

// PaymentIntentCreator is the subset of Stripe PaymentIntent calls the adapter needs.
type PaymentIntentCreator interface {
	New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// CheckoutSessionCreator is the subset of Stripe Checkout calls the adapter needs.
type CheckoutSessionCreator interface {
	New(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripePaymentIntents struct{}

type stripeCheckoutSessions struct{}

// NewStripePaymentIntents wraps the configured Stripe client.
func NewStripePaymentIntents(api *pkgstripe.Client) PaymentIntentCreator {
	if api == nil {
		return nil
	}
	return stripePaymentIntents{}
}

// NewStripeCheckoutSessions wraps the configured Stripe client.
func NewStripeCheckoutSessions(api *pkgstripe.Client) CheckoutSessionCreator {
	if api == nil {
		return nil
	}
	return stripeCheckoutSessions{}
}

func (stripePaymentIntents) New(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (stripeCheckoutSessions) New(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}
