package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Repository reads settled totals for payout reporting.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SettledRow is one PAID payer with the sum of its SUCCEEDED payments.
type SettledRow struct {
	PayerID         uuid.UUID      `gorm:"column:payer_id"`
	PayerName       string         `gorm:"column:payer_name"`
	PayerEmail      *string        `gorm:"column:payer_email"`
	CollectionID    uuid.UUID      `gorm:"column:collection_id"`
	CollectionTitle string         `gorm:"column:collection_title"`
	Currency        enums.Currency `gorm:"column:currency"`
	Amount          int64          `gorm:"column:amount"`
}

// ListSettledByCreator sums SUCCEEDED payments of PAID payers across every
// collection created by creatorID.
func (r *Repository) ListSettledByCreator(ctx context.Context, creatorID uuid.UUID) ([]SettledRow, error) {
	var rows []SettledRow
	err := r.db.WithContext(ctx).
		Model(&models.Payer{}).
		Select(`payers.id AS payer_id, payers.name AS payer_name, payers.email AS payer_email,
			collections.id AS collection_id, collections.title AS collection_title,
			collections.currency AS currency, SUM(payments.amount) AS amount`).
		Joins("JOIN collections ON collections.id = payers.collection_id").
		Joins("JOIN payments ON payments.payer_id = payers.id AND payments.status = ?", enums.PaymentStatusSucceeded).
		Where("collections.creator_id = ? AND payers.status = ?", creatorID, enums.PayerStatusPaid).
		Group("payers.id, payers.name, payers.email, collections.id, collections.title, collections.currency, collections.created_at, payers.created_at").
		Having("SUM(payments.amount) > 0").
		Order("collections.created_at DESC, payers.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
