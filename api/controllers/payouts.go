package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	"github.com/amaykorade/zakapay-hackathon/api/validators"
	"github.com/amaykorade/zakapay-hackathon/internal/payouts"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

type PayoutService interface {
	ForCreator(ctx context.Context, userID uuid.UUID) (*payouts.Summary, error)
}

// ListPayouts reports what each PAID payer owes the creator given by userId.
func ListPayouts(svc PayoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		userID, err := validators.QueryUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("userId", "userId is required"))
			return
		}

		summary, err := svc.ForCreator(r.Context(), *userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
