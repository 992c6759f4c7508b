package webhooks

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type StripeSigner interface {
	SigningSecret() string
}

// StripeWebhook verifies the Stripe-Signature header, then applies checkout
// session and payment intent events once per event id. Events from a newer
// API version are accepted; the service only reads stable fields.
func StripeWebhook(svc StripeWebhookService, signer StripeSigner, guard ReplayGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || signer == nil || guard == nil {
			notConfigured(w, r, logg, "stripe")
			return
		}
		req, ok := readSigned(w, r, logg, "stripe", stripeSignatureHeader)
		if !ok {
			return
		}

		event, err := webhook.ConstructEventWithOptions(req.payload, req.signature, signer.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature"))
			return
		}

		applyOnce(w, r, guard, logg, event.ID, func(ctx context.Context) error {
			return svc.HandleEvent(ctx, &event)
		})
	}
}
