package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	"github.com/amaykorade/zakapay-hackathon/api/validators"
	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

type PaymentService interface {
	CreateCheckout(ctx context.Context, payerSlug string) (*payments.CheckoutResult, error)
	CreateMultiCard(ctx context.Context, input payments.MultiCardInput) (*payments.PaymentDTO, error)
	ProcessMultiCard(ctx context.Context, paymentID uuid.UUID) (*payments.ProcessResult, error)
}

type checkoutRequest struct {
	PayerSlug string `json:"payerSlug" validate:"required,max=100"`
}

// CreateCheckout opens a hosted checkout session for an UNPAID payer.
func CreateCheckout(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		slug, err := validators.NormalizeSlug(req.PayerSlug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckout(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CreateMultiCardPayment records a payment split across several methods.
func CreateMultiCardPayment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var input payments.MultiCardInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.CreateMultiCard(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// ProcessMultiCardPayment charges every allocation of a pending payment.
func ProcessMultiCardPayment(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := uuidParam(r, "paymentId", "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProcessMultiCard(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
