package reconciler

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox/payloads"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PayerTransition asks for a payer to leave UNPAID.
type PayerTransition struct {
	CollectionID uuid.UUID
	PayerID      uuid.UUID
	To           enums.PayerStatus
	Actor        *outbox.ActorRef
}

// Result describes what a transition did. When Applied is false nothing was
// written; PayerFound and PayerStatus say why.
type Result struct {
	Applied          bool
	PayerFound       bool
	PayerStatus      enums.PayerStatus
	PreviousStatus   enums.CollectionStatus
	CollectionStatus enums.CollectionStatus
	Counts           StatusCounts
}

// StatusChanged reports whether the collection status moved.
func (r *Result) StatusChanged() bool {
	return r != nil && r.PreviousStatus != r.CollectionStatus
}

type ServiceParams struct {
	Repo    *Repository
	Outbox  outboxEmitter
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
}

// Reconciler applies payer transitions and collection recomputation inside
// the caller's transaction. Every entry point locks the collection row first.
type Reconciler struct {
	repo    *Repository
	outbox  outboxEmitter
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
}

func New(params ServiceParams) (*Reconciler, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler repository required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &Reconciler{
		repo:    params.Repo,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// LockCollection takes the collection row lock in tx. Unknown ids are NOT_FOUND.
func (r *Reconciler) LockCollection(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID) (*models.Collection, error) {
	collection, err := r.repo.WithTx(tx).LockCollection(ctx, collectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock collection")
	}
	if collection == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
	}
	return collection, nil
}

// TransitionPayer locks the collection, moves the payer out of UNPAID with a
// compare-and-swap and recomputes the collection status. tx must be open.
func (r *Reconciler) TransitionPayer(ctx context.Context, tx *gorm.DB, t PayerTransition) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if t.To != enums.PayerStatusPaid && t.To != enums.PayerStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unsupported payer transition").
			WithDetails(map[string]any{"to": t.To})
	}

	collection, err := r.LockCollection(ctx, tx, t.CollectionID)
	if err != nil {
		return nil, err
	}
	repo := r.repo.WithTx(tx)

	applied, err := repo.TransitionPayer(ctx, t.CollectionID, t.PayerID, enums.PayerStatusUnpaid, t.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payer status")
	}
	r.metrics.PayerTransition(t.To.String(), applied)

	if !applied {
		result := &Result{
			PreviousStatus:   collection.Status,
			CollectionStatus: collection.Status,
		}
		payer, err := repo.FindPayer(ctx, t.CollectionID, t.PayerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer")
		}
		if payer != nil {
			result.PayerFound = true
			result.PayerStatus = payer.Status
		}
		return result, nil
	}

	if err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayerStatusChanged,
		AggregateType: enums.AggregatePayer,
		AggregateID:   t.PayerID,
		Actor:         t.Actor,
		Data: payloads.PayerStatusChangedEvent{
			PayerID:      t.PayerID,
			CollectionID: t.CollectionID,
			From:         enums.PayerStatusUnpaid,
			To:           t.To,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payer event")
	}

	result, err := r.recompute(ctx, tx, collection, t.Actor)
	if err != nil {
		return nil, err
	}
	result.Applied = true
	result.PayerFound = true
	result.PayerStatus = t.To

	if r.logg != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"collection_id":     t.CollectionID.String(),
			"payer_id":          t.PayerID.String(),
			"payer_status":      t.To,
			"collection_status": result.CollectionStatus,
			"collection_moved":  result.StatusChanged(),
		})
		r.logg.Info(logCtx, "payer transition applied")
	}
	return result, nil
}

// Recompute locks the collection and reapplies the status rule. It is used by
// repair paths that changed payers outside TransitionPayer.
func (r *Reconciler) Recompute(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, actor *outbox.ActorRef) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	collection, err := r.LockCollection(ctx, tx, collectionID)
	if err != nil {
		return nil, err
	}
	return r.recompute(ctx, tx, collection, actor)
}

func (r *Reconciler) recompute(ctx context.Context, tx *gorm.DB, collection *models.Collection, actor *outbox.ActorRef) (*Result, error) {
	repo := r.repo.WithTx(tx)
	counts, err := repo.CountPayersByStatus(ctx, collection.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count payers")
	}

	result := &Result{
		PreviousStatus:   collection.Status,
		CollectionStatus: collection.Status,
		Counts:           counts,
	}
	next := NextCollectionStatus(collection.Status, counts)
	if next == collection.Status {
		return result, nil
	}

	updated, err := repo.UpdateCollectionStatus(ctx, collection.ID, collection.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update collection status")
	}
	if !updated {
		// The row lock makes this unreachable unless the lock was skipped.
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "collection status changed concurrently")
	}

	if err := r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCollectionStatusChanged,
		AggregateType: enums.AggregateCollection,
		AggregateID:   collection.ID,
		Actor:         actor,
		Data: payloads.CollectionStatusChangedEvent{
			CollectionID: collection.ID,
			From:         collection.Status,
			To:           next,
			UnpaidCount:  counts.Unpaid,
			PaidCount:    counts.Paid,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit collection event")
	}

	r.metrics.CollectionStatusChanged(collection.Status.String(), next.String())
	collection.Status = next
	result.CollectionStatus = next
	return result, nil
}
