package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
)

// ProcessMultiCard settles every open allocation of a multi-card payment
// through its provider, then finalizes the payment. Provider failures are
// recorded per allocation and never fail the call.
func (s *Service) ProcessMultiCard(ctx context.Context, paymentID uuid.UUID) (*ProcessResult, error) {
	ctx = s.logg.WithPaymentID(ctx, paymentID.String())
	payment, err := s.repo.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if !payment.IsMultiCard {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment is not a multi-card payment")
	}

	switch payment.Status {
	case enums.PaymentStatusSucceeded:
		return buildProcessResult(payment), nil
	case enums.PaymentStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already failed; submit a new multi-card payment").
			WithDetails(map[string]any{"payment_status": payment.Status})
	}

	payer, err := s.repo.FindPayer(ctx, payment.CollectionID, payment.PayerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer")
	}
	if payer == nil || payer.Collection == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
	}
	if err := requireUnpaid(payer); err != nil {
		return nil, err
	}

	var settleErrs error
	for i := range payment.Allocations {
		allocation := &payment.Allocations[i]
		if allocation.Status != enums.PaymentStatusPending || allocation.ProviderRef != nil {
			continue
		}
		outcome := s.settle(ctx, payment, payer, allocation)
		if outcome.Status == providers.OutcomeFailed {
			settleErrs = multierr.Append(settleErrs, fmt.Errorf("allocation %s: %s", allocation.ID, outcome.Reason))
		}
		if err := s.recordOutcome(ctx, allocation, outcome); err != nil {
			return nil, err
		}
	}
	if settleErrs != nil {
		s.logg.Warn(s.logg.WithField(ctx, "allocation_errors", settleErrs.Error()), "multi-card allocations failed")
	}

	actor := &outbox.ActorRef{Kind: outbox.ActorAPI}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.finalizeTx(ctx, tx, payment.ID, actor)
		return err
	}); err != nil {
		return nil, err
	}

	final, err := s.repo.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
	}
	result := buildProcessResult(final)
	s.logg.Info(s.logg.WithField(ctx, "payment_status", result.Status), "multi-card payment processed")
	return result, nil
}

func (s *Service) settle(ctx context.Context, payment *models.Payment, payer *models.Payer, allocation *models.PaymentAllocation) providers.Outcome {
	method := allocation.PaymentMethod
	if method == nil {
		return providers.Failed("payment method missing")
	}
	adapter, err := s.providers.Resolve(method.Provider)
	if err != nil {
		var unsupported *providers.UnsupportedProviderError
		if errors.As(err, &unsupported) {
			return providers.Failed(unsupported.Error())
		}
		return providers.Failed(err.Error())
	}

	req := providers.SettleRequest{
		AllocationID: allocation.ID,
		PaymentID:    payment.ID,
		PayerID:      payer.ID,
		CollectionID: payer.CollectionID,
		Amount:       allocation.Amount,
		Currency:     payer.Collection.Currency,
		MethodName:   method.Name,
		Description:  payer.Collection.Title,
	}
	if allocation.SourceRef != nil {
		req.SourceRef = *allocation.SourceRef
	}
	outcome, err := adapter.Settle(ctx, req)
	if err != nil {
		return providers.Failed(err.Error())
	}
	if outcome.Status == providers.OutcomeFailed && outcome.Reason == "" {
		outcome.Reason = "payment declined"
	}
	return outcome
}

func (s *Service) recordOutcome(ctx context.Context, allocation *models.PaymentAllocation, outcome providers.Outcome) error {
	status := outcome.Status.PaymentStatus()
	applied, err := s.repo.SettleAllocation(ctx, allocation.ID, status, outcome.ProviderRef, outcome.Reason, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record allocation outcome")
	}
	provider := ""
	if allocation.PaymentMethod != nil {
		provider = allocation.PaymentMethod.Provider.String()
	}
	s.metrics.AllocationOutcome(provider, status.String())
	if !applied {
		// A webhook settled it first; finalize reads the stored status.
		return nil
	}
	allocation.Status = status
	if outcome.ProviderRef != "" {
		allocation.ProviderRef = ptr(outcome.ProviderRef)
	}
	if outcome.Reason != "" {
		allocation.FailureReason = ptr(outcome.Reason)
	}
	return nil
}

// SettleAllocation applies an asynchronous provider report to one allocation
// and finalizes its payment. Allocations only ever leave PENDING, so late or
// duplicate reports are no-ops.
func (s *Service) SettleAllocation(ctx context.Context, in AllocationSettlement) (*SettlementResult, error) {
	if in.Status != enums.PaymentStatusSucceeded && in.Status != enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement status must be SUCCEEDED or FAILED")
	}
	allocation, err := s.repo.FindAllocation(ctx, in.AllocationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load allocation")
	}
	if allocation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
	}
	if in.PaymentID != nil && *in.PaymentID != allocation.PaymentID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found for payment")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_id":    allocation.PaymentID.String(),
		"allocation_id": allocation.ID.String(),
	})

	reason := strings.TrimSpace(in.Reason)
	if in.Status == enums.PaymentStatusFailed && reason == "" {
		reason = "payment declined"
	}
	actor := &outbox.ActorRef{Kind: outbox.ActorWebhook, ID: in.EventID}
	result := &SettlementResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.repo.WithTx(tx).FindPayment(ctx, allocation.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if _, err := s.reconciler.LockCollection(ctx, tx, payment.CollectionID); err != nil {
			return err
		}
		applied, err := s.repo.WithTx(tx).SettleAllocation(ctx, allocation.ID, in.Status, in.ProviderRef, reason, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle allocation")
		}
		result.Applied = applied
		status, err := s.finalizeTx(ctx, tx, payment.ID, actor)
		if err != nil {
			return err
		}
		result.PaymentStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		provider := ""
		if allocation.PaymentMethod != nil {
			provider = allocation.PaymentMethod.Provider.String()
		}
		s.metrics.AllocationOutcome(provider, in.Status.String())
		s.logg.Info(s.logg.WithField(ctx, "payment_status", result.PaymentStatus), "allocation settled")
	}
	return result, nil
}

// finalizeTx derives the payment status from its allocations: any FAILED
// fails the payment, all SUCCEEDED succeeds it and pays the payer, anything
// else leaves it PENDING. Payments that already left PENDING are untouched.
func (s *Service) finalizeTx(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, actor *outbox.ActorRef) (enums.PaymentStatus, error) {
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindPayment(ctx, paymentID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if _, err := s.reconciler.LockCollection(ctx, tx, payment.CollectionID); err != nil {
		return "", err
	}
	if payment.Status.IsTerminal() {
		return payment.Status, nil
	}

	next, reason := aggregateStatus(payment.Allocations)
	switch next {
	case enums.PaymentStatusFailed:
		updated, err := repo.UpdatePaymentStatus(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusFailed, reason)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail payment")
		}
		if !updated {
			return s.currentStatus(ctx, repo, payment.ID)
		}
		if err := s.emitPaymentEvent(ctx, tx, payment, enums.PaymentStatusFailed, reason, actor); err != nil {
			return "", err
		}
		return enums.PaymentStatusFailed, nil

	case enums.PaymentStatusSucceeded:
		updated, err := repo.UpdatePaymentStatus(ctx, payment.ID, enums.PaymentStatusPending, enums.PaymentStatusSucceeded, "")
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete payment")
		}
		if !updated {
			return s.currentStatus(ctx, repo, payment.ID)
		}
		if err := s.emitPaymentEvent(ctx, tx, payment, enums.PaymentStatusSucceeded, "", actor); err != nil {
			return "", err
		}
		transition, err := s.reconciler.TransitionPayer(ctx, tx, reconciler.PayerTransition{
			CollectionID: payment.CollectionID,
			PayerID:      payment.PayerID,
			To:           enums.PayerStatusPaid,
			Actor:        actor,
		})
		if err != nil {
			return "", err
		}
		if !transition.Applied {
			s.logg.Warn(s.logg.WithField(ctx, "payer_status", transition.PayerStatus), "multi-card payment succeeded for a payer no longer unpaid")
		}
		return enums.PaymentStatusSucceeded, nil
	}
	return enums.PaymentStatusPending, nil
}

func (s *Service) currentStatus(ctx context.Context, repo *Repository, paymentID uuid.UUID) (enums.PaymentStatus, error) {
	payment, err := repo.FindPayment(ctx, paymentID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
	}
	if payment == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment.Status, nil
}

func aggregateStatus(allocations []models.PaymentAllocation) (enums.PaymentStatus, string) {
	if len(allocations) == 0 {
		return enums.PaymentStatusPending, ""
	}
	succeeded := 0
	var reasons []string
	for _, allocation := range allocations {
		switch allocation.Status {
		case enums.PaymentStatusFailed:
			reason := "allocation failed"
			if allocation.FailureReason != nil && *allocation.FailureReason != "" {
				reason = *allocation.FailureReason
			}
			reasons = append(reasons, fmt.Sprintf("%s: %s", allocation.ID, reason))
		case enums.PaymentStatusSucceeded:
			succeeded++
		}
	}
	if len(reasons) > 0 {
		return enums.PaymentStatusFailed, strings.Join(reasons, "; ")
	}
	if succeeded == len(allocations) {
		return enums.PaymentStatusSucceeded, ""
	}
	return enums.PaymentStatusPending, ""
}

func buildProcessResult(payment *models.Payment) *ProcessResult {
	result := &ProcessResult{
		PaymentID:    payment.ID,
		Status:       payment.Status,
		AllCompleted: payment.Status == enums.PaymentStatusSucceeded,
		Allocations:  make([]AllocationResult, 0, len(payment.Allocations)),
	}
	failed, pending := 0, 0
	for _, allocation := range payment.Allocations {
		item := AllocationResult{
			AllocationID: allocation.ID,
			Amount:       allocation.Amount,
			Status:       allocation.Status,
			ProviderRef:  allocation.ProviderRef,
			Error:        allocation.FailureReason,
		}
		if allocation.PaymentMethod != nil {
			item.Method = allocation.PaymentMethod.Name
			item.Provider = allocation.PaymentMethod.Provider
		}
		switch allocation.Status {
		case enums.PaymentStatusFailed:
			failed++
		case enums.PaymentStatusPending:
			pending++
		}
		result.Allocations = append(result.Allocations, item)
	}

	total := len(payment.Allocations)
	switch {
	case result.AllCompleted:
		result.Message = fmt.Sprintf("All %d payment allocations completed successfully", total)
	case failed > 0:
		result.Message = fmt.Sprintf("%d of %d payment allocations failed; submit a new payment to retry", failed, total)
	default:
		result.Message = fmt.Sprintf("%d of %d payment allocations awaiting provider confirmation", pending, total)
	}
	return result
}
