package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/internal/paymentmethods"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// AllocationInput is one requested slice of a multi-card payment.
type AllocationInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Type        string `json:"type" validate:"omitempty,oneof=card wallet upi bank"`
	Provider    string `json:"provider" validate:"required"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	ExternalRef string `json:"externalRef" validate:"omitempty,max=255"`
}

// AllocationSpec is a validated AllocationInput.
type AllocationSpec struct {
	Method    paymentmethods.Spec
	Amount    int64
	SourceRef string
}

// CheckoutCompletion is a provider report that a payer's hosted checkout paid.
type CheckoutCompletion struct {
	PayerID      uuid.UUID
	CollectionID uuid.UUID
	Provider     enums.Provider
	ProviderRef  string
	// Amount falls back to the payer's share when zero.
	Amount  int64
	EventID string
}

// CompletionResult reports what a checkout completion changed.
type CompletionResult struct {
	Applied          bool
	PaymentID        *uuid.UUID
	CollectionStatus enums.CollectionStatus
}

// CheckoutResult is returned to the client to redirect the payer.
type CheckoutResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

// MultiCardInput requests a multi-card payment for the payer behind PayerSlug.
type MultiCardInput struct {
	PayerSlug   string            `json:"payerSlug" validate:"required,max=100"`
	Allocations []AllocationInput `json:"allocations" validate:"required,min=1,max=10,dive"`
}

// AllocationResult is the per-allocation outcome of processing.
type AllocationResult struct {
	AllocationID uuid.UUID           `json:"allocationId"`
	Method       string              `json:"method"`
	Provider     enums.Provider      `json:"provider"`
	Amount       int64               `json:"amount"`
	Status       enums.PaymentStatus `json:"status"`
	ProviderRef  *string             `json:"providerRef,omitempty"`
	Error        *string             `json:"error,omitempty"`
}

// ProcessResult summarises a multi-card processing run.
type ProcessResult struct {
	PaymentID    uuid.UUID           `json:"paymentId"`
	AllCompleted bool                `json:"allCompleted"`
	Status       enums.PaymentStatus `json:"status"`
	Allocations  []AllocationResult  `json:"allocations"`
	Message      string              `json:"message"`
}

// AllocationSettlement is an asynchronous provider report for one allocation.
type AllocationSettlement struct {
	AllocationID uuid.UUID
	// PaymentID, when set, must match the allocation's payment.
	PaymentID   *uuid.UUID
	Status      enums.PaymentStatus
	ProviderRef string
	Reason      string
	EventID     string
}

// SettlementResult reports what an asynchronous settlement changed.
type SettlementResult struct {
	Applied       bool
	PaymentStatus enums.PaymentStatus
}

// PaymentDTO is the response shape for a payment.
type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	PayerID       uuid.UUID           `json:"payerId"`
	CollectionID  uuid.UUID           `json:"collectionId"`
	Provider      enums.Provider      `json:"provider"`
	ProviderRef   *string             `json:"providerRef,omitempty"`
	Amount        int64               `json:"amount"`
	Status        enums.PaymentStatus `json:"status"`
	IsMultiCard   bool                `json:"isMultiCard"`
	FailureReason *string             `json:"failureReason,omitempty"`
	Allocations   []AllocationDTO     `json:"allocations,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// AllocationDTO is the response shape for an allocation.
type AllocationDTO struct {
	ID            uuid.UUID           `json:"id"`
	Method        string              `json:"method"`
	Provider      enums.Provider      `json:"provider"`
	Amount        int64               `json:"amount"`
	Status        enums.PaymentStatus `json:"status"`
	ProviderRef   *string             `json:"providerRef,omitempty"`
	FailureReason *string             `json:"failureReason,omitempty"`
}

// FromModel maps a payment (with optional preloaded allocations) to its DTO.
func FromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	dto := &PaymentDTO{
		ID:            p.ID,
		PayerID:       p.PayerID,
		CollectionID:  p.CollectionID,
		Provider:      p.Provider,
		ProviderRef:   p.ProviderRef,
		Amount:        p.Amount,
		Status:        p.Status,
		IsMultiCard:   p.IsMultiCard,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
	for _, a := range p.Allocations {
		item := AllocationDTO{
			ID:            a.ID,
			Amount:        a.Amount,
			Status:        a.Status,
			ProviderRef:   a.ProviderRef,
			FailureReason: a.FailureReason,
		}
		if a.PaymentMethod != nil {
			item.Method = a.PaymentMethod.Name
			item.Provider = a.PaymentMethod.Provider
		}
		dto.Allocations = append(dto.Allocations, item)
	}
	return dto
}
