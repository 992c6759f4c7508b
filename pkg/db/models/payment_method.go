package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// PaymentMethod is a funding source label shared across allocations, unique
// per (name, provider). Source tokens are stored per allocation.
type PaymentMethod struct {
	ID        uuid.UUID               `gorm:"type:uuid;primaryKey"`
	Name      string                  `gorm:"column:name;not null;uniqueIndex:idx_payment_methods_name_provider"`
	Type      enums.PaymentMethodType `gorm:"column:type;not null;default:'card'"`
	Provider  enums.Provider          `gorm:"column:provider;not null;uniqueIndex:idx_payment_methods_name_provider"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *PaymentMethod) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
