package paymentmethods

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Repository persists shared payment methods.
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

// InsertIfAbsent creates method unless (name, provider) already exists.
func (r *Repository) InsertIfAbsent(ctx context.Context, method *models.PaymentMethod) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "provider"}},
			DoNothing: true,
		}).
		Create(method).Error
}

func (r *Repository) FindByNameProvider(ctx context.Context, name string, provider enums.Provider) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("name = ? AND provider = ?", name, provider).
		First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}
