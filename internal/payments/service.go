package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/paymentmethods"
	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/internal/split"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type methodResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, spec paymentmethods.Spec) (*models.PaymentMethod, error)
}

type payerTransitioner interface {
	LockCollection(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID) (*models.Collection, error)
	TransitionPayer(ctx context.Context, tx *gorm.DB, t reconciler.PayerTransition) (*reconciler.Result, error)
}

type adapterResolver interface {
	Resolve(provider enums.Provider) (providers.Adapter, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the payment service dependencies. Checkout may be nil
// when no hosted checkout provider is configured.
type ServiceParams struct {
	Repo       *Repository
	Methods    methodResolver
	Reconciler payerTransitioner
	Providers  adapterResolver
	Checkout   providers.CheckoutCreator
	Outbox     outboxEmitter
	TxRunner   txRunner
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

// Service drives payments from creation to settlement.
type Service struct {
	repo       *Repository
	methods    methodResolver
	reconciler payerTransitioner
	providers  adapterResolver
	checkout   providers.CheckoutCreator
	outbox     outboxEmitter
	tx         txRunner
	metrics    *metrics.PaymentMetrics
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository required")
	}
	if params.Methods == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method resolver required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Providers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider registry required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:       params.Repo,
		methods:    params.Methods,
		reconciler: params.Reconciler,
		providers:  params.Providers,
		checkout:   params.Checkout,
		outbox:     params.Outbox,
		tx:         params.TxRunner,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// PrepareAllocations validates multi-card allocations against share without
// touching the store.
func PrepareAllocations(share int64, inputs []AllocationInput) ([]AllocationSpec, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one allocation is required")
	}
	specs := make([]AllocationSpec, 0, len(inputs))
	amounts := make([]int64, 0, len(inputs))
	for i, input := range inputs {
		method, err := paymentmethods.ParseSpec(i, input.Name, input.Type, input.Provider)
		if err != nil {
			return nil, err
		}
		specs = append(specs, AllocationSpec{
			Method:    method,
			Amount:    input.Amount,
			SourceRef: strings.TrimSpace(input.ExternalRef),
		})
		amounts = append(amounts, input.Amount)
	}
	if err := split.ValidateAllocations(share, amounts); err != nil {
		return nil, err
	}
	return specs, nil
}

// CreateMultiCard opens a multi-card payment for the payer behind input.PayerSlug.
func (s *Service) CreateMultiCard(ctx context.Context, input MultiCardInput) (*PaymentDTO, error) {
	slug := strings.TrimSpace(input.PayerSlug)
	payer, err := s.repo.FindPayerBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer")
	}
	if payer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
	}
	if err := requireUnpaid(payer); err != nil {
		return nil, err
	}
	specs, err := PrepareAllocations(payer.ShareAmount, input.Allocations)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithPayerID(ctx, payer.ID.String())
	var payment *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.reconciler.LockCollection(ctx, tx, payer.CollectionID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		current, err := repo.FindPayer(ctx, payer.CollectionID, payer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payer")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
		}
		if err := requireUnpaid(current); err != nil {
			return err
		}
		pending, err := repo.HasPendingMultiCard(ctx, payer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check pending payments")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "a multi-card payment is already in progress for this payer")
		}
		payment, err = s.CreateMultiCardTx(ctx, tx, current, specs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithPaymentID(ctx, payment.ID.String()), "multi-card payment created")
	return FromModel(payment), nil
}

// CreateMultiCardTx persists a PENDING multi-card payment and its allocations
// for payer inside tx. specs must come from PrepareAllocations.
func (s *Service) CreateMultiCardTx(ctx context.Context, tx *gorm.DB, payer *models.Payer, specs []AllocationSpec) (*models.Payment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	payment := &models.Payment{
		ID:           uuid.New(),
		PayerID:      payer.ID,
		CollectionID: payer.CollectionID,
		Provider:     enums.ProviderMultiCard,
		Amount:       payer.ShareAmount,
		Status:       enums.PaymentStatusPending,
		IsMultiCard:  true,
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}

	allocations := make([]models.PaymentAllocation, 0, len(specs))
	for _, spec := range specs {
		method, err := s.methods.Resolve(ctx, tx, spec.Method)
		if err != nil {
			return nil, err
		}
		allocation := models.PaymentAllocation{
			ID:              uuid.New(),
			PaymentID:       payment.ID,
			PaymentMethodID: method.ID,
			Amount:          spec.Amount,
			Status:          enums.PaymentStatusPending,
			PaymentMethod:   method,
		}
		if spec.SourceRef != "" {
			ref := spec.SourceRef
			allocation.SourceRef = &ref
		}
		allocations = append(allocations, allocation)
	}
	if err := repo.CreateAllocations(ctx, allocations); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create allocations")
	}
	payment.Allocations = allocations
	return payment, nil
}

// Get returns a payment with its allocations.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.repo.FindPayment(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return FromModel(payment), nil
}

func requireUnpaid(payer *models.Payer) error {
	switch payer.Status {
	case enums.PayerStatusUnpaid:
		return nil
	case enums.PayerStatusPaid:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already completed").
			WithDetails(map[string]any{"payer_status": payer.Status})
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payer has been cancelled").
			WithDetails(map[string]any{"payer_status": payer.Status})
	}
}

func (s *Service) emitPaymentEvent(ctx context.Context, tx *gorm.DB, payment *models.Payment, status enums.PaymentStatus, reason string, actor *outbox.ActorRef) error {
	eventType := enums.EventPaymentSucceeded
	if status == enums.PaymentStatusFailed {
		eventType = enums.EventPaymentFailed
	}
	data := payloads.PaymentStatusEvent{
		PaymentID:    payment.ID,
		PayerID:      payment.PayerID,
		CollectionID: payment.CollectionID,
		Provider:     payment.Provider,
		Amount:       payment.Amount,
		Status:       status,
		IsMultiCard:  payment.IsMultiCard,
		Reason:       reason,
	}
	if payment.ProviderRef != nil {
		data.ProviderRef = *payment.ProviderRef
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Actor:         actor,
		Data:          data,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment event")
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
