package payments

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/pkg/db"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
)

// CreateCheckout opens a hosted checkout for the payer's full share.
func (s *Service) CreateCheckout(ctx context.Context, payerSlug string) (*CheckoutResult, error) {
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout provider not configured")
	}
	payer, err := s.repo.FindPayerBySlug(ctx, strings.TrimSpace(payerSlug))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer")
	}
	if payer == nil || payer.Collection == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
	}
	if err := requireUnpaid(payer); err != nil {
		return nil, err
	}

	ctx = s.logg.WithPayerID(ctx, payer.ID.String())
	req := providers.CheckoutRequest{
		PayerID:         payer.ID,
		CollectionID:    payer.CollectionID,
		PayerSlug:       payer.Slug,
		PayerName:       payer.Name,
		CollectionTitle: payer.Collection.Title,
		Amount:          payer.ShareAmount,
		Currency:        payer.Collection.Currency,
	}
	if payer.Email != nil {
		req.PayerEmail = *payer.Email
	}
	session, err := s.checkout.CreateCheckout(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout session created")
	return &CheckoutResult{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// CompleteCheckout marks the payer PAID and records a SUCCEEDED payment. A
// payer that already left UNPAID makes this a no-op, so replayed provider
// events never create a second payment.
func (s *Service) CompleteCheckout(ctx context.Context, in CheckoutCompletion) (*CompletionResult, error) {
	provider := in.Provider
	if provider == "" {
		provider = enums.ProviderStripe
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"collection_id": in.CollectionID.String(),
		"payer_id":      in.PayerID.String(),
		"provider":      provider,
		"provider_ref":  in.ProviderRef,
	})
	actor := &outbox.ActorRef{Kind: outbox.ActorWebhook, ID: in.EventID}

	result := &CompletionResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transition, err := s.reconciler.TransitionPayer(ctx, tx, reconciler.PayerTransition{
			CollectionID: in.CollectionID,
			PayerID:      in.PayerID,
			To:           enums.PayerStatusPaid,
			Actor:        actor,
		})
		if err != nil {
			return err
		}
		result.CollectionStatus = transition.CollectionStatus
		if !transition.Applied {
			if !transition.PayerFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
			}
			return nil
		}

		payer, err := s.repo.WithTx(tx).FindPayer(ctx, in.CollectionID, in.PayerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer")
		}
		amount := in.Amount
		if amount <= 0 {
			amount = payer.ShareAmount
		}

		payment := &models.Payment{
			PayerID:      in.PayerID,
			CollectionID: in.CollectionID,
			Provider:     provider,
			Amount:       amount,
			Status:       enums.PaymentStatusSucceeded,
		}
		if ref := strings.TrimSpace(in.ProviderRef); ref != "" {
			payment.ProviderRef = ptr(ref)
		}
		if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "idx_payments_provider_ref") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "provider reference already recorded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}
		if err := s.emitPaymentEvent(ctx, tx, payment, enums.PaymentStatusSucceeded, "", actor); err != nil {
			return err
		}
		result.Applied = true
		result.PaymentID = &payment.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.logg.Info(s.logg.WithPaymentID(ctx, result.PaymentID.String()), "checkout completed")
	} else {
		s.logg.Info(ctx, "checkout completion ignored; payer already processed")
	}
	return result, nil
}
