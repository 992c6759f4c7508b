package square

import (
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"
)

const maxNoteLength = 500

// PaymentRequest is a card charge in minor units.
type PaymentRequest struct {
	Amount         int64
	Currency       string
	SourceID       string
	LocationID     string
	ReferenceID    string
	IdempotencyKey string
	Note           string
}

func (r PaymentRequest) build() (*sq.CreatePaymentRequest, error) {
	switch {
	case r.Amount <= 0:
		return nil, errors.New("amount must be positive")
	case strings.TrimSpace(r.SourceID) == "":
		return nil, errors.New("source id required")
	case strings.TrimSpace(r.IdempotencyKey) == "":
		return nil, errors.New("idempotency key required")
	}
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(r.Currency)))
	if currency == "" {
		currency = sq.Currency("INR")
	}
	amount := r.Amount
	autocomplete := true
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: r.IdempotencyKey,
		SourceID:       r.SourceID,
		AmountMoney:    &sq.Money{Amount: &amount, Currency: &currency},
		Autocomplete:   &autocomplete,
		LocationID:     optional(r.LocationID),
		ReferenceID:    optional(r.ReferenceID),
	}
	if note := strings.TrimSpace(r.Note); note != "" {
		if runes := []rune(note); len(runes) > maxNoteLength {
			note = string(runes[:maxNoteLength])
		}
		req.Note = &note
	}
	return req, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
