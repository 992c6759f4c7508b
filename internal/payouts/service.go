package payouts

import (
	"context"

	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/money"
)

// StatusPending marks a payout that has been collected but not yet sent to
// the creator. Payout execution is not tracked.
const StatusPending = "PENDING"

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Payout is money a payer settled for one of the creator's collections.
type Payout struct {
	PayerID         uuid.UUID      `json:"payerId"`
	PayerName       string         `json:"payerName"`
	PayerEmail      *string        `json:"payerEmail,omitempty"`
	CollectionID    uuid.UUID      `json:"collectionId"`
	CollectionTitle string         `json:"collectionTitle"`
	Currency        enums.Currency `json:"currency"`
	Amount          int64          `json:"amount"`
	Display         money.Amount   `json:"display"`
	Status          string         `json:"status"`
}

// Summary lists payouts with per-currency totals.
type Summary struct {
	UserID  uuid.UUID               `json:"userId"`
	Payouts []Payout                `json:"payouts"`
	Totals  map[string]money.Amount `json:"totals"`
}

type Service struct {
	repo  *Repository
	users userFinder
}

func NewService(repo *Repository, users userFinder) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts repository required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	return &Service{repo: repo, users: users}, nil
}

// ForCreator returns the pending payouts owed to userID.
func (s *Service) ForCreator(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	rows, err := s.repo.ListSettledByCreator(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}

	summary := &Summary{
		UserID:  userID,
		Payouts: make([]Payout, 0, len(rows)),
		Totals:  map[string]money.Amount{},
	}
	sums := map[enums.Currency]int64{}
	for _, row := range rows {
		summary.Payouts = append(summary.Payouts, Payout{
			PayerID:         row.PayerID,
			PayerName:       row.PayerName,
			PayerEmail:      row.PayerEmail,
			CollectionID:    row.CollectionID,
			CollectionTitle: row.CollectionTitle,
			Currency:        row.Currency,
			Amount:          row.Amount,
			Display:         money.New(row.Amount, row.Currency),
			Status:          StatusPending,
		})
		sums[row.Currency] += row.Amount
	}
	for currency, total := range sums {
		summary.Totals[currency.String()] = money.New(total, currency)
	}
	return summary, nil
}
