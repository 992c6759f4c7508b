package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// PaymentAllocation is the slice of a multi-card payment charged to one payment method.
type PaymentAllocation struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PaymentID       uuid.UUID           `gorm:"column:payment_id;type:uuid;not null;index"`
	PaymentMethodID uuid.UUID           `gorm:"column:payment_method_id;type:uuid;not null;index"`
	Amount          int64               `gorm:"column:amount;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING'"`
	SourceRef       *string             `gorm:"column:source_ref"`
	ProviderRef     *string             `gorm:"column:provider_ref"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	SettledAt       *time.Time          `gorm:"column:settled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID"`
}

func (a *PaymentAllocation) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
