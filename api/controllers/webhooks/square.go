package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	squarewebhook "github.com/amaykorade/zakapay-hackathon/internal/webhooks/square"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const squareSignatureHeader = "X-Square-Hmacsha256-Signature"

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error
}

type SquareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

// SquareWebhook verifies the HMAC signature, which covers the notification
// URL as well as the body, then applies payment notifications once per
// event id. Events without an event_id fall back to the object id.
func SquareWebhook(svc SquareWebhookService, signer SquareSigner, guard ReplayGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || signer == nil || guard == nil {
			notConfigured(w, r, logg, "square")
			return
		}
		req, ok := readSigned(w, r, logg, "square", squareSignatureHeader)
		if !ok {
			return
		}
		ctx := r.Context()
		if !squareSignatureMatches(req, signer.NotificationURL(), signer.SigningSecret()) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid square signature"))
			return
		}

		var event squarewebhook.SquareWebhookEvent
		if err := json.Unmarshal(req.payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode square event"))
			return
		}
		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			eventID = strings.TrimSpace(event.Data.ID)
		}
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.Invalid("event_id", "square event id missing"))
			return
		}

		applyOnce(w, r, guard, logg, eventID, func(ctx context.Context) error {
			return svc.HandleEvent(ctx, &event)
		})
	}
}

// squareSignatureMatches compares base64(HMAC-SHA256(key, url+body)) in
// constant time.
func squareSignatureMatches(req signedRequest, notificationURL, key string) bool {
	if key == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(notificationURL))
	mac.Write(req.payload)
	want := mac.Sum(nil)
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.signature))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
