package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Repository persists payments and their allocations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error
}

func (r *Repository) CreateAllocations(ctx context.Context, allocations []models.PaymentAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&allocations).Error
}

// FindPayment loads a payment with its allocations and their methods. A
// missing row returns nil, nil.
func (r *Repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Allocations.PaymentMethod").
		Where("id = ?", id).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindAllocation loads one allocation. A missing row returns nil, nil.
func (r *Repository) FindAllocation(ctx context.Context, id uuid.UUID) (*models.PaymentAllocation, error) {
	var allocation models.PaymentAllocation
	err := r.db.WithContext(ctx).Preload("PaymentMethod").Where("id = ?", id).First(&allocation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &allocation, nil
}

// FindPayerBySlug loads a payer and its collection. A missing row returns nil, nil.
func (r *Repository) FindPayerBySlug(ctx context.Context, slug string) (*models.Payer, error) {
	var payer models.Payer
	err := r.db.WithContext(ctx).Preload("Collection").Where("slug = ?", slug).First(&payer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payer, nil
}

// FindPayer loads a payer scoped to its collection. A missing row returns nil, nil.
func (r *Repository) FindPayer(ctx context.Context, collectionID, payerID uuid.UUID) (*models.Payer, error) {
	var payer models.Payer
	err := r.db.WithContext(ctx).
		Preload("Collection").
		Where("id = ? AND collection_id = ?", payerID, collectionID).
		First(&payer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payer, nil
}

// HasPendingMultiCard reports whether the payer already has an open multi-card payment.
func (r *Repository) HasPendingMultiCard(ctx context.Context, payerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payer_id = ? AND is_multi_card = ? AND status = ?", payerID, true, enums.PaymentStatusPending).
		Count(&count).Error
	return count > 0, err
}

// SettleAllocation moves a PENDING allocation to status. Settled allocations
// are never touched again, which makes late or replayed provider reports no-ops.
func (r *Repository) SettleAllocation(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, providerRef, reason string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": at,
	}
	if providerRef != "" {
		updates["provider_ref"] = providerRef
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	if status != enums.PaymentStatusPending {
		updates["settled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAllocation{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdatePaymentStatus moves a payment from -> to.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, reason string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DriftedPayer is an UNPAID payer that already holds a SUCCEEDED payment.
type DriftedPayer struct {
	PayerID      uuid.UUID
	CollectionID uuid.UUID
}

func (r *Repository) ListDriftedPayers(ctx context.Context, limit int) ([]DriftedPayer, error) {
	var rows []DriftedPayer
	err := r.db.WithContext(ctx).
		Table("payers").
		Select("DISTINCT payers.id AS payer_id, payers.collection_id AS collection_id").
		Joins("JOIN payments ON payments.payer_id = payers.id").
		Where("payers.status = ? AND payments.status = ?", enums.PayerStatusUnpaid, enums.PaymentStatusSucceeded).
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
