package collections

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	pkgpagination "github.com/amaykorade/zakapay-hackathon/pkg/pagination"
)

// Repository persists collections and their payers.
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

// SlugExists reports whether any payer already owns slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Payer{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) CreateCollection(ctx context.Context, collection *models.Collection) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(collection).Error
}

func (r *Repository) CreatePayers(ctx context.Context, payers []models.Payer) error {
	if len(payers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&payers).Error
}

// FindByID loads a collection with its creator and payers in creation order.
// A missing row returns nil, nil.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Payers", orderPayers).
		Where("id = ?", id).
		First(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

type listQuery struct {
	creatorID *uuid.UUID
	limit     int
	cursor    *pkgpagination.Cursor
}

// List returns collections newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Collection, error) {
	query := r.db.WithContext(ctx).Model(&models.Collection{}).
		Preload("Creator").
		Preload("Payers", orderPayers)

	if opts.creatorID != nil {
		query = query.Where("creator_id = ?", *opts.creatorID)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Collection
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindPayerBySlug loads a payer with its collection and creator. A missing row
// returns nil, nil.
func (r *Repository) FindPayerBySlug(ctx context.Context, slug string) (*models.Payer, error) {
	var payer models.Payer
	err := r.db.WithContext(ctx).
		Preload("Collection").
		Preload("Collection.Creator").
		Where("slug = ?", slug).
		First(&payer).Error
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

// LatestPayment returns the payer's most recent payment with allocations, or
// nil when the payer has none.
func (r *Repository) LatestPayment(ctx context.Context, payerID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Allocations.PaymentMethod").
		Where("payer_id = ?", payerID).
		Order("created_at DESC").Order("id DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func orderPayers(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}
