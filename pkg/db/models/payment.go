package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Payment records one settlement attempt for a payer. Multi-card payments are
// settled through their allocations.
type Payment struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PayerID       uuid.UUID           `gorm:"column:payer_id;type:uuid;not null;index"`
	CollectionID  uuid.UUID           `gorm:"column:collection_id;type:uuid;not null;index"`
	Provider      enums.Provider      `gorm:"column:provider;not null;uniqueIndex:idx_payments_provider_ref"`
	ProviderRef   *string             `gorm:"column:provider_ref;uniqueIndex:idx_payments_provider_ref"`
	Amount        int64               `gorm:"column:amount;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING';index"`
	IsMultiCard   bool                `gorm:"column:is_multi_card;not null;default:false"`
	FailureReason *string             `gorm:"column:failure_reason"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Allocations []PaymentAllocation `gorm:"foreignKey:PaymentID"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
