package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Payer owes ShareAmount of a collection and is reachable through Slug.
type Payer struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CollectionID uuid.UUID         `gorm:"column:collection_id;type:uuid;not null;index"`
	Name         string            `gorm:"column:name;not null"`
	Email        *string           `gorm:"column:email"`
	ShareAmount  int64             `gorm:"column:share_amount;not null"`
	Status       enums.PayerStatus `gorm:"column:status;not null;default:'UNPAID';index"`
	Slug         string            `gorm:"column:slug;not null;uniqueIndex:idx_payers_slug"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Collection *Collection `gorm:"foreignKey:CollectionID"`
	Payments   []Payment   `gorm:"foreignKey:PayerID"`
}

func (p *Payer) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
