package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const maxWebhookBody = 1 << 20

type ReplayGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// signedRequest is a webhook body and its signature header, read but not
// yet verified.
type signedRequest struct {
	payload   []byte
	signature string
}

// readSigned reads at most maxWebhookBody bytes and the named signature
// header. It writes the error response and returns false on failure.
func readSigned(w http.ResponseWriter, r *http.Request, logg *logger.Logger, provider, header string) (signedRequest, bool) {
	ctx := r.Context()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return signedRequest{}, false
	}
	if len(payload) > maxWebhookBody {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, provider+" payload too large").
			WithDetails(map[string]any{"maxBytes": maxWebhookBody}))
		return signedRequest{}, false
	}
	signature := r.Header.Get(header)
	if signature == "" {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, provider+" signature missing"))
		return signedRequest{}, false
	}
	return signedRequest{payload: payload, signature: signature}, true
}

func notConfigured(w http.ResponseWriter, r *http.Request, logg *logger.Logger, provider string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, provider+" webhook handler not configured"))
}

// applyOnce runs handle unless eventID was already processed. A failed handle
// releases the id so the provider's retry is applied.
func applyOnce(w http.ResponseWriter, r *http.Request, guard ReplayGuard, logg *logger.Logger, eventID string, handle func(ctx context.Context) error) {
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithField(ctx, "event_id", eventID)
	}
	seen, err := guard.CheckAndMark(ctx, eventID)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check replay guard"))
		return
	}
	if seen {
		if logg != nil {
			logg.Info(ctx, "webhook.duplicate")
		}
		responses.WriteSuccess(w, map[string]any{"received": true, "duplicate": true})
		return
	}

	if err := handle(ctx); err != nil {
		if delErr := guard.Delete(context.WithoutCancel(ctx), eventID); delErr != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", delErr.Error()), "webhook.release_failed")
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{"received": true})
}
