package collections

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/internal/slugs"
	"github.com/amaykorade/zakapay-hackathon/internal/split"
	"github.com/amaykorade/zakapay-hackathon/internal/users"
	"github.com/amaykorade/zakapay-hackathon/pkg/db"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox/payloads"
	pkgpagination "github.com/amaykorade/zakapay-hackathon/pkg/pagination"
)

const (
	maxTitleLength   = 100
	selfPaymentName  = "Self Payment"
	cancelledMessage = "Payment cancelled successfully"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type creatorUpserter interface {
	UpsertByEmail(ctx context.Context, tx *gorm.DB, email, name string) (*models.User, error)
}

type slugIssuer interface {
	Issue(ctx context.Context, prefix string, reserved map[string]struct{}) (string, error)
}

type multiCardCreator interface {
	CreateMultiCardTx(ctx context.Context, tx *gorm.DB, payer *models.Payer, specs []payments.AllocationSpec) (*models.Payment, error)
}

type payerTransitioner interface {
	TransitionPayer(ctx context.Context, tx *gorm.DB, t reconciler.PayerTransition) (*reconciler.Result, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo       *Repository
	Users      creatorUpserter
	Slugs      slugIssuer
	Payments   multiCardCreator
	Reconciler payerTransitioner
	Outbox     outboxEmitter
	TxRunner   txRunner
	Logger     *logger.Logger
	// BaseURL prefixes payer links, e.g. https://split.example.com.
	BaseURL string
	Now     func() time.Time
}

// Service creates collections and cancels payers.
type Service struct {
	repo       *Repository
	users      creatorUpserter
	slugs      slugIssuer
	payments   multiCardCreator
	reconciler payerTransitioner
	outbox     outboxEmitter
	tx         txRunner
	logg       *logger.Logger
	baseURL    string
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "collections repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users service required")
	}
	if params.Slugs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "slug issuer required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
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
		users:      params.Users,
		slugs:      params.Slugs,
		payments:   params.Payments,
		reconciler: params.Reconciler,
		outbox:     params.Outbox,
		tx:         params.TxRunner,
		logg:       params.Logger,
		baseURL:    strings.TrimRight(strings.TrimSpace(params.BaseURL), "/"),
		now:        now,
	}, nil
}

// PayLink returns the public payment link for slug.
func (s *Service) PayLink(slug string) string {
	return s.baseURL + "/pay/" + slug
}

type plan struct {
	title        string
	creatorEmail string
	currency     enums.Currency
	mode         enums.PaymentMode
	shares       []int64
	names        []string
	emails       []*string
	allocations  []payments.AllocationSpec

	// selfNamed is false when the self-pay payer should take the creator's name.
	selfNamed bool
}

// Create validates the input, splits the total and persists the collection,
// its payers and (self-pay only) the pending multi-card payment in one
// transaction. Nothing is written when validation fails.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CollectionDTO, error) {
	p, err := buildPlan(input)
	if err != nil {
		return nil, err
	}

	reserved := make(map[string]struct{}, len(p.shares))
	issued := make([]string, len(p.shares))
	for i := range p.shares {
		slug, err := s.slugs.Issue(ctx, slugs.DefaultPrefix, reserved)
		if err != nil {
			return nil, err
		}
		issued[i] = slug
	}

	var (
		collection *models.Collection
		payment    *models.Payment
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var creator *models.User
		if p.creatorEmail != "" {
			var err error
			creator, err = s.users.UpsertByEmail(ctx, tx, p.creatorEmail, "")
			if err != nil {
				return err
			}
		}

		created := s.now()
		collection = &models.Collection{
			ID:          uuid.New(),
			Title:       p.title,
			TotalAmount: input.TotalAmount,
			Currency:    p.currency,
			NumPayers:   len(p.shares),
			PaymentMode: p.mode,
			Status:      enums.CollectionStatusPending,
			CreatedAt:   created,
		}
		if creator != nil {
			collection.CreatorID = &creator.ID
			collection.Creator = creator
		}
		if err := repo.CreateCollection(ctx, collection); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create collection")
		}

		payers := make([]models.Payer, len(p.shares))
		for i, share := range p.shares {
			payers[i] = models.Payer{
				ID:           uuid.New(),
				CollectionID: collection.ID,
				Name:         p.names[i],
				Email:        p.emails[i],
				ShareAmount:  share,
				Status:       enums.PayerStatusUnpaid,
				Slug:         issued[i],
				// Distinct timestamps keep payers in input order.
				CreatedAt: created.Add(time.Duration(i) * time.Microsecond),
			}
		}
		if p.mode == enums.PaymentModeSelf && creator != nil {
			if !p.selfNamed {
				payers[0].Name = creator.Name
			}
			if payers[0].Email == nil {
				payers[0].Email = &creator.Email
			}
		}
		if err := repo.CreatePayers(ctx, payers); err != nil {
			if db.IsUniqueViolation(err, "idx_payers_slug") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payer link already in use; retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payers")
		}
		collection.Payers = payers

		if len(p.allocations) > 0 {
			var err error
			payment, err = s.payments.CreateMultiCardTx(ctx, tx, &payers[0], p.allocations)
			if err != nil {
				return err
			}
		}

		payerIDs := make([]uuid.UUID, len(payers))
		for i := range payers {
			payerIDs[i] = payers[i].ID
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCollectionCreated,
			AggregateType: enums.AggregateCollection,
			AggregateID:   collection.ID,
			Actor:         &outbox.ActorRef{Kind: outbox.ActorAPI},
			Data: payloads.CollectionCreatedEvent{
				CollectionID: collection.ID,
				CreatorID:    collection.CreatorID,
				TotalAmount:  collection.TotalAmount,
				Currency:     collection.Currency,
				PaymentMode:  collection.PaymentMode,
				PayerIDs:     payerIDs,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit collection event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithCollectionID(ctx, collection.ID.String()), map[string]any{
		"payment_mode": collection.PaymentMode,
		"num_payers":   collection.NumPayers,
		"total_amount": collection.TotalAmount,
	})
	s.logg.Info(logCtx, "collection created")

	dto := s.toDTO(collection)
	dto.Payment = payments.FromModel(payment)
	return &dto, nil
}

func buildPlan(input CreateInput) (*plan, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validation("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}

	mode := enums.PaymentModeSplit
	if raw := strings.TrimSpace(input.PaymentMode); raw != "" {
		parsed, err := enums.ParsePaymentMode(raw)
		if err != nil {
			return nil, validation("paymentMode", "invalid payment mode")
		}
		mode = parsed
	}
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, validation("currency", "unsupported currency")
	}
	creatorEmail := ""
	if raw := strings.TrimSpace(input.CreatorEmail); raw != "" {
		creatorEmail, err = users.NormalizeEmail(raw)
		if err != nil {
			return nil, err
		}
	}

	var shares []int64
	switch mode {
	case enums.PaymentModeSplit:
		shares, err = split.Equal(input.TotalAmount, input.NumPayers)
	case enums.PaymentModeCustom:
		if input.NumPayers > 0 && input.NumPayers != len(input.Amounts) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "numPayers must match the number of amounts").
				WithDetails(map[string]any{"expected": input.NumPayers, "actual": len(input.Amounts)})
		}
		shares, err = split.Custom(input.TotalAmount, input.Amounts)
	case enums.PaymentModeSelf:
		shares, err = split.SelfPay(input.TotalAmount)
	}
	if err != nil {
		return nil, err
	}
	// payers.share_amount is CHECK (> 0); a zero share could never be paid.
	if last := shares[len(shares)-1]; last <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount is too small to split across every payer").
			WithDetails(map[string]any{"total_amount": input.TotalAmount, "num_payers": len(shares)})
	}

	p := &plan{
		title:        title,
		creatorEmail: creatorEmail,
		selfNamed:    len(input.PayerNames) > 0 && strings.TrimSpace(input.PayerNames[0]) != "",
		currency:     currency,
		mode:         mode,
		shares:       shares,
		names:        make([]string, len(shares)),
		emails:       make([]*string, len(shares)),
	}
	for i := range shares {
		p.names[i] = defaultName(mode, input.PayerNames, i)
		if i < len(input.PayerEmails) {
			if email := strings.TrimSpace(input.PayerEmails[i]); email != "" {
				p.emails[i] = &email
			}
		}
	}

	if len(input.Allocations) > 0 {
		if mode != enums.PaymentModeSelf {
			return nil, validation("allocations", "allocations are only supported in self-pay mode")
		}
		p.allocations, err = payments.PrepareAllocations(shares[0], input.Allocations)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func defaultName(mode enums.PaymentMode, names []string, i int) string {
	if i < len(names) {
		if name := strings.TrimSpace(names[i]); name != "" {
			return name
		}
	}
	if mode == enums.PaymentModeSelf {
		return selfPaymentName
	}
	return fmt.Sprintf("Payer %d", i+1)
}

// CancelPayer moves an UNPAID payer to CANCELLED and recomputes the collection.
// Payers that are missing or already PAID/CANCELLED are NOT_FOUND.
func (s *Service) CancelPayer(ctx context.Context, input CancelInput) (*CancelResult, error) {
	if input.PayerID == uuid.Nil || input.CollectionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payerId and collectionId are required")
	}
	ctx = s.logg.WithPayerID(s.logg.WithCollectionID(ctx, input.CollectionID.String()), input.PayerID.String())

	var result *reconciler.Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.reconciler.TransitionPayer(ctx, tx, reconciler.PayerTransition{
			CollectionID: input.CollectionID,
			PayerID:      input.PayerID,
			To:           enums.PayerStatusCancelled,
			Actor:        &outbox.ActorRef{Kind: outbox.ActorAPI},
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return notProcessable()
			}
			return err
		}
		if !result.Applied {
			return notProcessable()
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "cancel rejected; payer not found or already processed")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "collection_status", result.CollectionStatus), "payer cancelled")
	return &CancelResult{
		Message:          cancelledMessage,
		PayerID:          input.PayerID,
		PayerStatus:      enums.PayerStatusCancelled,
		CollectionID:     input.CollectionID,
		CollectionStatus: result.CollectionStatus,
	}, nil
}

// Get returns one collection with its payer links.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CollectionDTO, error) {
	collection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collection")
	}
	if collection == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
	}
	dto := s.toDTO(collection)
	return &dto, nil
}

// List returns collections newest first, optionally scoped to a creator.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{
		creatorID: params.CreatorID,
		limit:     pkgpagination.LimitWithBuffer(params.Limit),
	}
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, validation("cursor", "cursor is malformed")
	}
	query.cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list collections")
	}
	rows, nextCursor := pkgpagination.Trim(rows, params.Limit, func(c models.Collection) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})

	items := make([]CollectionDTO, len(rows))
	for i := range rows {
		items[i] = s.toDTO(&rows[i])
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

// PayerBySlug returns the public view of a payer. Status is read as persisted.
func (s *Service) PayerBySlug(ctx context.Context, slug string) (*PayerView, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, validation("slug", "slug is required")
	}
	payer, err := s.repo.FindPayerBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payer")
	}
	if payer == nil || payer.Collection == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
	}
	latest, err := s.repo.LatestPayment(ctx, payer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest payment")
	}
	return toPayerView(payer, latest), nil
}

func validation(field, message string) error {
	return pkgerrors.Invalid(field, message)
}

func notProcessable() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "payer not found or already processed")
}
