package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Collection is a bill split between one or more payers. Status is derived from
// the payers and only changes through recomputation.
type Collection struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	Title       string                 `gorm:"column:title;not null"`
	TotalAmount int64                  `gorm:"column:total_amount;not null"`
	Currency    enums.Currency         `gorm:"column:currency;not null;default:'INR'"`
	NumPayers   int                    `gorm:"column:num_payers;not null"`
	PaymentMode enums.PaymentMode      `gorm:"column:payment_mode;not null"`
	Status      enums.CollectionStatus `gorm:"column:status;not null;default:'PENDING';index"`
	CreatorID   *uuid.UUID             `gorm:"column:creator_id;type:uuid;index"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Creator *User   `gorm:"foreignKey:CreatorID"`
	Payers  []Payer `gorm:"foreignKey:CollectionID"`
}

func (c *Collection) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
