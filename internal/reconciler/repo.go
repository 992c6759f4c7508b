package reconciler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Repository holds the locking and compare-and-swap queries of the state machine.
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

// LockCollection selects the collection row FOR UPDATE. A missing row
// returns nil, nil.
func (r *Repository) LockCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
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

// TransitionPayer moves the payer from -> to and reports whether a row changed.
func (r *Repository) TransitionPayer(ctx context.Context, collectionID, payerID uuid.UUID, from, to enums.PayerStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payer{}).
		Where("id = ? AND collection_id = ? AND status = ?", payerID, collectionID, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type statusCount struct {
	Status enums.PayerStatus
	Total  int64
}

func (r *Repository) CountPayersByStatus(ctx context.Context, collectionID uuid.UUID) (StatusCounts, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.Payer{}).
		Select("status, COUNT(*) AS total").
		Where("collection_id = ?", collectionID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return StatusCounts{}, err
	}

	var counts StatusCounts
	for _, row := range rows {
		switch row.Status {
		case enums.PayerStatusUnpaid:
			counts.Unpaid = row.Total
		case enums.PayerStatusPaid:
			counts.Paid = row.Total
		case enums.PayerStatusCancelled:
			counts.Cancelled = row.Total
		}
	}
	return counts, nil
}

// UpdateCollectionStatus writes to only while the row still holds from.
func (r *Repository) UpdateCollectionStatus(ctx context.Context, id uuid.UUID, from, to enums.CollectionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Collection{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
