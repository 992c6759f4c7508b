package payloads

import (
	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// CollectionCreatedEvent is emitted once a collection and its payers commit.
type CollectionCreatedEvent struct {
	CollectionID uuid.UUID         `json:"collection_id"`
	CreatorID    *uuid.UUID        `json:"creator_id,omitempty"`
	TotalAmount  int64             `json:"total_amount"`
	Currency     enums.Currency    `json:"currency"`
	PaymentMode  enums.PaymentMode `json:"payment_mode"`
	PayerIDs     []uuid.UUID       `json:"payer_ids"`
}

// PayerStatusChangedEvent reports a payer leaving UNPAID.
type PayerStatusChangedEvent struct {
	PayerID      uuid.UUID         `json:"payer_id"`
	CollectionID uuid.UUID         `json:"collection_id"`
	From         enums.PayerStatus `json:"from"`
	To           enums.PayerStatus `json:"to"`
}

// CollectionStatusChangedEvent reports a recomputed collection status.
type CollectionStatusChangedEvent struct {
	CollectionID uuid.UUID              `json:"collection_id"`
	From         enums.CollectionStatus `json:"from"`
	To           enums.CollectionStatus `json:"to"`
	UnpaidCount  int64                  `json:"unpaid_count"`
	PaidCount    int64                  `json:"paid_count"`
}

// PaymentStatusEvent is shared by payment_succeeded and payment_failed.
type PaymentStatusEvent struct {
	PaymentID    uuid.UUID           `json:"payment_id"`
	PayerID      uuid.UUID           `json:"payer_id"`
	CollectionID uuid.UUID           `json:"collection_id"`
	Provider     enums.Provider      `json:"provider"`
	ProviderRef  string              `json:"provider_ref,omitempty"`
	Amount       int64               `json:"amount"`
	Status       enums.PaymentStatus `json:"status"`
	IsMultiCard  bool                `json:"is_multi_card"`
	Reason       string              `json:"reason,omitempty"`
}
