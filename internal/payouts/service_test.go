package payouts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/users"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/dbtest"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

func addPayment(t *testing.T, conn *gorm.DB, payer models.Payer, amount int64, status enums.PaymentStatus) {
	t.Helper()
	ref := "pi_" + uuid.NewString()[:8]
	require.NoError(t, conn.Create(&models.Payment{
		PayerID:      payer.ID,
		CollectionID: payer.CollectionID,
		Provider:     enums.ProviderStripe,
		ProviderRef:  &ref,
		Amount:       amount,
		Status:       status,
	}).Error)
}

func TestForCreatorSumsSucceededPaymentsOfPaidPayers(t *testing.T) {
	conn := dbtest.Open(t)
	owner := &models.User{Email: "owner@example.com", Name: "owner"}
	require.NoError(t, conn.Create(owner).Error)

	collection, payers := dbtest.SeedCollection(t, conn, 1500,
		enums.PayerStatusPaid, enums.PayerStatusPaid, enums.PayerStatusUnpaid, enums.PayerStatusCancelled)
	require.NoError(t, conn.Model(collection).Update("creator_id", owner.ID).Error)

	addPayment(t, conn, payers[0], 1000, enums.PaymentStatusSucceeded)
	addPayment(t, conn, payers[0], 500, enums.PaymentStatusSucceeded)
	addPayment(t, conn, payers[0], 700, enums.PaymentStatusFailed)
	addPayment(t, conn, payers[1], 1500, enums.PaymentStatusSucceeded)
	// UNPAID payers are excluded even with a stray SUCCEEDED payment.
	addPayment(t, conn, payers[2], 1500, enums.PaymentStatusSucceeded)

	other, otherPayers := dbtest.SeedCollection(t, conn, 900, enums.PayerStatusPaid)
	addPayment(t, conn, otherPayers[0], 900, enums.PaymentStatusSucceeded)
	require.Nil(t, other.CreatorID)

	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)

	summary, err := svc.ForCreator(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, summary.Payouts, 2)

	byPayer := map[uuid.UUID]Payout{}
	for _, p := range summary.Payouts {
		byPayer[p.PayerID] = p
		require.Equal(t, StatusPending, p.Status)
		require.Equal(t, "Dinner", p.CollectionTitle)
	}
	require.Equal(t, int64(1500), byPayer[payers[0].ID].Amount)
	require.Equal(t, int64(1500), byPayer[payers[1].ID].Amount)
	require.Equal(t, "₹15.00", byPayer[payers[1].ID].Display.Display)
	require.Equal(t, int64(3000), summary.Totals["INR"].Minor)
}

func TestForCreatorValidation(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.ForCreator(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ForCreator(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestForCreatorWithoutPayouts(t *testing.T) {
	conn := dbtest.Open(t)
	owner := &models.User{Email: "solo@example.com", Name: "solo"}
	require.NoError(t, conn.Create(owner).Error)

	svc, err := NewService(NewRepository(conn), users.NewRepository(conn))
	require.NoError(t, err)
	summary, err := svc.ForCreator(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Empty(t, summary.Payouts)
	require.Empty(t, summary.Totals)
}
