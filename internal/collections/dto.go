package collections

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	"github.com/amaykorade/zakapay-hackathon/pkg/money"
	pkgpagination "github.com/amaykorade/zakapay-hackathon/pkg/pagination"
)

// CreateInput is the payload for creating a collection. NumPayers drives equal
// splits; custom splits take their count from Amounts and self-pay always has
// one payer.
type CreateInput struct {
	Title        string                     `json:"title" validate:"required"`
	TotalAmount  int64                      `json:"totalAmount" validate:"gt=0"`
	NumPayers    int                        `json:"numPayers" validate:"omitempty,min=1,max=100"`
	Currency     string                     `json:"currency" validate:"omitempty,len=3"`
	PaymentMode  string                     `json:"paymentMode" validate:"omitempty,oneof=split custom self-pay"`
	PayerNames   []string                   `json:"payerNames" validate:"max=100,dive,max=100"`
	PayerEmails  []string                   `json:"payerEmails" validate:"max=100,dive,omitempty,email"`
	Amounts      []int64                    `json:"amounts" validate:"max=100"`
	CreatorEmail string                     `json:"creatorEmail" validate:"omitempty,email"`
	Allocations  []payments.AllocationInput `json:"allocations" validate:"max=10,dive"`
}

// CancelInput identifies the payer to cancel.
type CancelInput struct {
	PayerID      uuid.UUID `json:"payerId" validate:"required"`
	CollectionID uuid.UUID `json:"collectionId" validate:"required"`
}

// ListParams filters the collection listing.
type ListParams struct {
	CreatorID *uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []CollectionDTO `json:"items"`
	Cursor string          `json:"cursor"`
}

type CreatorDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// PayerLinkDTO is a payer as shown to the collection creator.
type PayerLinkDTO struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Email       *string           `json:"email,omitempty"`
	ShareAmount int64             `json:"shareAmount"`
	Share       money.Amount      `json:"share"`
	Status      enums.PayerStatus `json:"status"`
	Slug        string            `json:"slug"`
	Link        string            `json:"link"`
}

type CollectionDTO struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	TotalAmount int64                  `json:"totalAmount"`
	Total       money.Amount           `json:"total"`
	Currency    enums.Currency         `json:"currency"`
	NumPayers   int                    `json:"numPayers"`
	PaymentMode enums.PaymentMode      `json:"paymentMode"`
	Status      enums.CollectionStatus `json:"status"`
	Creator     *CreatorDTO            `json:"creator,omitempty"`
	Links       []PayerLinkDTO         `json:"links"`
	Payment     *payments.PaymentDTO   `json:"payment,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// PayerView is the public payer page: the payer, its collection and the most
// recent payment attempt.
type PayerView struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Email         *string              `json:"email,omitempty"`
	ShareAmount   int64                `json:"shareAmount"`
	Share         money.Amount         `json:"share"`
	Status        enums.PayerStatus    `json:"status"`
	Slug          string               `json:"slug"`
	Collection    CollectionSummary    `json:"collection"`
	LatestPayment *payments.PaymentDTO `json:"latestPayment,omitempty"`
}

type CollectionSummary struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	TotalAmount int64                  `json:"totalAmount"`
	Currency    enums.Currency         `json:"currency"`
	NumPayers   int                    `json:"numPayers"`
	PaymentMode enums.PaymentMode      `json:"paymentMode"`
	Status      enums.CollectionStatus `json:"status"`
	Creator     *CreatorDTO            `json:"creator,omitempty"`
}

// CancelResult reports a cancelled payer and the recomputed collection status.
type CancelResult struct {
	Message          string                 `json:"message"`
	PayerID          uuid.UUID              `json:"payerId"`
	PayerStatus      enums.PayerStatus      `json:"payerStatus"`
	CollectionID     uuid.UUID              `json:"collectionId"`
	CollectionStatus enums.CollectionStatus `json:"collectionStatus"`
}

func creatorDTO(u *models.User) *CreatorDTO {
	if u == nil {
		return nil
	}
	return &CreatorDTO{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (s *Service) toDTO(c *models.Collection) CollectionDTO {
	dto := CollectionDTO{
		ID:          c.ID,
		Title:       c.Title,
		TotalAmount: c.TotalAmount,
		Total:       money.New(c.TotalAmount, c.Currency),
		Currency:    c.Currency,
		NumPayers:   c.NumPayers,
		PaymentMode: c.PaymentMode,
		Status:      c.Status,
		Creator:     creatorDTO(c.Creator),
		Links:       make([]PayerLinkDTO, 0, len(c.Payers)),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, p := range c.Payers {
		dto.Links = append(dto.Links, PayerLinkDTO{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			ShareAmount: p.ShareAmount,
			Share:       money.New(p.ShareAmount, c.Currency),
			Status:      p.Status,
			Slug:        p.Slug,
			Link:        s.PayLink(p.Slug),
		})
	}
	return dto
}

func toPayerView(p *models.Payer, latest *models.Payment) *PayerView {
	c := p.Collection
	return &PayerView{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		ShareAmount: p.ShareAmount,
		Share:       money.New(p.ShareAmount, c.Currency),
		Status:      p.Status,
		Slug:        p.Slug,
		Collection: CollectionSummary{
			ID:          c.ID,
			Title:       c.Title,
			TotalAmount: c.TotalAmount,
			Currency:    c.Currency,
			NumPayers:   c.NumPayers,
			PaymentMode: c.PaymentMode,
			Status:      c.Status,
			Creator:     creatorDTO(c.Creator),
		},
		LatestPayment: payments.FromModel(latest),
	}
}
