package payments

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/paymentmethods"
	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/pkg/db"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/dbtest"
	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
)

// scriptedAdapter returns the outcome registered for the method name.
type scriptedAdapter struct {
	provider enums.Provider
	mu       sync.Mutex
	outcomes map[string]providers.Outcome
	calls    []providers.SettleRequest
}

func (a *scriptedAdapter) Provider() enums.Provider { return a.provider }

func (a *scriptedAdapter) Settle(_ context.Context, req providers.SettleRequest) (providers.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)
	if outcome, ok := a.outcomes[req.MethodName]; ok {
		return outcome, nil
	}
	return providers.Outcome{Status: providers.OutcomeSucceeded, ProviderRef: "ref-" + req.AllocationID.String()[:8]}, nil
}

type stubCheckout struct {
	req providers.CheckoutRequest
}

func (s *stubCheckout) CreateCheckout(_ context.Context, req providers.CheckoutRequest) (*providers.CheckoutSession, error) {
	s.req = req
	return &providers.CheckoutSession{ID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
}

type fixture struct {
	conn     *gorm.DB
	svc      *Service
	stripe   *scriptedAdapter
	checkout *stubCheckout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	rec, err := reconciler.New(reconciler.ServiceParams{Repo: reconciler.NewRepository(conn), Outbox: outboxSvc, Logger: logg})
	require.NoError(t, err)
	methods, err := paymentmethods.NewService(paymentmethods.NewRepository(conn))
	require.NoError(t, err)

	stripeAdapter := &scriptedAdapter{provider: enums.ProviderStripe, outcomes: map[string]providers.Outcome{}}
	checkout := &stubCheckout{}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(conn),
		Methods:    methods,
		Reconciler: rec,
		Providers:  providers.NewRegistry(stripeAdapter),
		Checkout:   checkout,
		Outbox:     outboxSvc,
		TxRunner:   db.Wrap(conn),
		Logger:     logg,
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, stripe: stripeAdapter, checkout: checkout}
}

func (f *fixture) paymentCount(t *testing.T, payerID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Payment{}).Where("payer_id = ?", payerID).Count(&count).Error)
	return count
}

func TestCompleteCheckoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 3334, enums.PayerStatusUnpaid, enums.PayerStatusUnpaid)
	in := CheckoutCompletion{
		PayerID:      payers[0].ID,
		CollectionID: collection.ID,
		Provider:     enums.ProviderStripe,
		ProviderRef:  "pi_123",
		Amount:       3334,
	}

	first, err := f.svc.CompleteCheckout(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.Applied)
	require.NotNil(t, first.PaymentID)
	require.Equal(t, enums.CollectionStatusPartial, first.CollectionStatus)

	second, err := f.svc.CompleteCheckout(context.Background(), in)
	require.NoError(t, err)
	require.False(t, second.Applied)
	require.Nil(t, second.PaymentID)

	require.Equal(t, int64(1), f.paymentCount(t, payers[0].ID))
	require.Equal(t, enums.PayerStatusPaid, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)
	require.Equal(t, int64(1), dbtest.CountEvents(t, f.conn, enums.EventPaymentSucceeded))
}

func TestCompleteCheckoutDefaultsAmountToShare(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 5000, enums.PayerStatusUnpaid)

	res, err := f.svc.CompleteCheckout(context.Background(), CheckoutCompletion{
		PayerID:      payers[0].ID,
		CollectionID: collection.ID,
		ProviderRef:  "cs_abc",
	})
	require.NoError(t, err)
	require.Equal(t, enums.CollectionStatusCompleted, res.CollectionStatus)

	var payment models.Payment
	require.NoError(t, f.conn.First(&payment, "id = ?", *res.PaymentID).Error)
	require.Equal(t, int64(5000), payment.Amount)
	require.Equal(t, enums.ProviderStripe, payment.Provider)
	require.Equal(t, enums.PaymentStatusSucceeded, payment.Status)
}

func TestCompleteCheckoutUnknownPayer(t *testing.T) {
	f := newFixture(t)
	collection, _ := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)

	_, err := f.svc.CompleteCheckout(context.Background(), CheckoutCompletion{PayerID: uuid.New(), CollectionID: collection.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.CompleteCheckout(context.Background(), CheckoutCompletion{PayerID: uuid.New(), CollectionID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCompleteCheckoutOnCancelledPayerIsNoop(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusCancelled, enums.PayerStatusUnpaid)

	res, err := f.svc.CompleteCheckout(context.Background(), CheckoutCompletion{PayerID: payers[0].ID, CollectionID: collection.ID, ProviderRef: "pi_late"})
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Zero(t, f.paymentCount(t, payers[0].ID))
	require.Equal(t, enums.PayerStatusCancelled, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)
}

func TestCreateCheckoutRequiresUnpaidPayer(t *testing.T) {
	f := newFixture(t)
	_, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusPaid, enums.PayerStatusCancelled, enums.PayerStatusUnpaid)

	_, err := f.svc.CreateCheckout(context.Background(), payers[0].Slug)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, "payment already completed", pkgerrors.As(err).Message())

	_, err = f.svc.CreateCheckout(context.Background(), payers[1].Slug)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.CreateCheckout(context.Background(), "pay-missing")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	res, err := f.svc.CreateCheckout(context.Background(), payers[2].Slug)
	require.NoError(t, err)
	require.Equal(t, "cs_test", res.SessionID)
	require.Equal(t, payers[2].ID, f.checkout.req.PayerID)
	require.Equal(t, int64(100), f.checkout.req.Amount)
	require.Equal(t, enums.CurrencyINR, f.checkout.req.Currency)
}

func byMethod(t *testing.T, res *ProcessResult, method string) AllocationResult {
	t.Helper()
	for _, allocation := range res.Allocations {
		if allocation.Method == method {
			return allocation
		}
	}
	t.Fatalf("allocation for method %q not found", method)
	return AllocationResult{}
}

func multiCardInput(slug string, amounts ...int64) MultiCardInput {
	input := MultiCardInput{PayerSlug: slug}
	for i, amount := range amounts {
		input.Allocations = append(input.Allocations, AllocationInput{
			Name:        []string{"Visa", "Amex", "Mastercard"}[i%3],
			Type:        "card",
			Provider:    "stripe",
			Amount:      amount,
			ExternalRef: "pm_card",
		})
	}
	return input
}

func TestCompleteCheckoutConcurrentCompletionsPayOnce(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 100,
		enums.PayerStatusUnpaid, enums.PayerStatusUnpaid, enums.PayerStatusUnpaid)

	const perPayer = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied = map[uuid.UUID]int{}
	)
	for _, payer := range payers {
		for i := 0; i < perPayer; i++ {
			wg.Add(1)
			go func(payerID uuid.UUID, i int) {
				defer wg.Done()
				res, err := f.svc.CompleteCheckout(context.Background(), CheckoutCompletion{
					PayerID:      payerID,
					CollectionID: collection.ID,
					ProviderRef:  fmt.Sprintf("pi_%s_%d", payerID.String()[:8], i),
				})
				if err != nil {
					t.Errorf("complete checkout: %v", err)
					return
				}
				if res.Applied {
					mu.Lock()
					applied[payerID]++
					mu.Unlock()
				}
			}(payer.ID, i)
		}
	}
	wg.Wait()

	for _, payer := range payers {
		require.Equal(t, 1, applied[payer.ID])
		require.Equal(t, int64(1), f.paymentCount(t, payer.ID))
		require.Equal(t, enums.PayerStatusPaid, dbtest.ReloadPayer(t, f.conn, payer.ID).Status)
	}
	require.Equal(t, enums.CollectionStatusCompleted, dbtest.ReloadCollection(t, f.conn, collection.ID).Status)
	require.Equal(t, int64(3), dbtest.CountEvents(t, f.conn, enums.EventPaymentSucceeded))
}

func TestCreateMultiCardValidatesSum(t *testing.T) {
	f := newFixture(t)
	_, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)

	_, err := f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 60, 39))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Zero(t, f.paymentCount(t, payers[0].ID))
}

func TestCreateMultiCardRejectsSecondPending(t *testing.T) {
	f := newFixture(t)
	_, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)

	payment, err := f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 60, 40))
	require.NoError(t, err)
	require.True(t, payment.IsMultiCard)
	require.Equal(t, enums.ProviderMultiCard, payment.Provider)
	require.Len(t, payment.Allocations, 2)

	_, err = f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 100))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateMultiCardUnknownProvider(t *testing.T) {
	f := newFixture(t)
	_, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)
	input := multiCardInput(payers[0].Slug, 100)
	input.Allocations[0].Provider = "bitpay"

	_, err := f.svc.CreateMultiCard(context.Background(), input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestProcessMultiCardAllSucceeded(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)
	payment, err := f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 60, 40))
	require.NoError(t, err)

	res, err := f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.NoError(t, err)
	require.True(t, res.AllCompleted)
	require.Equal(t, enums.PaymentStatusSucceeded, res.Status)
	require.Len(t, res.Allocations, 2)
	for _, allocation := range res.Allocations {
		require.Equal(t, enums.PaymentStatusSucceeded, allocation.Status)
		require.NotNil(t, allocation.ProviderRef)
	}
	require.Equal(t, enums.PayerStatusPaid, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)
	require.Equal(t, enums.CollectionStatusCompleted, dbtest.ReloadCollection(t, f.conn, collection.ID).Status)

	again, err := f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.NoError(t, err)
	require.True(t, again.AllCompleted)
	require.Len(t, f.stripe.calls, 2)
}

func TestProcessMultiCardChargesOwnSourceRef(t *testing.T) {
	f := newFixture(t)
	_, alice := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)
	_, bob := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)

	aliceInput := multiCardInput(alice[0].Slug, 100)
	aliceInput.Allocations[0].ExternalRef = "pm_alice"
	alicePayment, err := f.svc.CreateMultiCard(context.Background(), aliceInput)
	require.NoError(t, err)

	bobInput := multiCardInput(bob[0].Slug, 100)
	bobInput.Allocations[0].ExternalRef = "pm_bob"
	bobPayment, err := f.svc.CreateMultiCard(context.Background(), bobInput)
	require.NoError(t, err)

	var methods int64
	require.NoError(t, f.conn.Model(&models.PaymentMethod{}).Count(&methods).Error)
	require.Equal(t, int64(1), methods)

	_, err = f.svc.ProcessMultiCard(context.Background(), alicePayment.ID)
	require.NoError(t, err)
	_, err = f.svc.ProcessMultiCard(context.Background(), bobPayment.ID)
	require.NoError(t, err)

	require.Len(t, f.stripe.calls, 2)
	require.Equal(t, alicePayment.ID, f.stripe.calls[0].PaymentID)
	require.Equal(t, "pm_alice", f.stripe.calls[0].SourceRef)
	require.Equal(t, bobPayment.ID, f.stripe.calls[1].PaymentID)
	require.Equal(t, "pm_bob", f.stripe.calls[1].SourceRef)
}

func TestProcessMultiCardOneFailureFailsPayment(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid, enums.PayerStatusUnpaid)
	f.stripe.outcomes["Amex"] = providers.Failed("card declined")
	payment, err := f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 60, 40))
	require.NoError(t, err)

	res, err := f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.NoError(t, err)
	require.False(t, res.AllCompleted)
	require.Equal(t, enums.PaymentStatusFailed, res.Status)
	require.Equal(t, enums.PaymentStatusSucceeded, byMethod(t, res, "Visa").Status)
	require.Equal(t, enums.PaymentStatusFailed, byMethod(t, res, "Amex").Status)
	require.Equal(t, "card declined", *byMethod(t, res, "Amex").Error)
	require.Contains(t, res.Message, "1 of 2")

	require.Equal(t, enums.PayerStatusUnpaid, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)
	require.Equal(t, enums.CollectionStatusPending, dbtest.ReloadCollection(t, f.conn, collection.ID).Status)
	require.Equal(t, int64(1), dbtest.CountEvents(t, f.conn, enums.EventPaymentFailed))

	_, err = f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 100))
	require.NoError(t, err)
}

func TestProcessMultiCardUnsupportedProviderFailsAllocation(t *testing.T) {
	f := newFixture(t)
	_, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)
	input := multiCardInput(payers[0].Slug, 50, 50)
	input.Allocations[1].Provider = "venmo"
	payment, err := f.svc.CreateMultiCard(context.Background(), input)
	require.NoError(t, err)

	res, err := f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusFailed, res.Status)
	require.Contains(t, *byMethod(t, res, "Amex").Error, "venmo")
}

func TestProcessMultiCardPendingThenWebhookSettles(t *testing.T) {
	f := newFixture(t)
	_, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)
	f.stripe.outcomes["Amex"] = providers.Outcome{Status: providers.OutcomePending, ProviderRef: "pi_async"}
	payment, err := f.svc.CreateMultiCard(context.Background(), multiCardInput(payers[0].Slug, 60, 40))
	require.NoError(t, err)

	res, err := f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, res.Status)
	require.Equal(t, enums.PayerStatusUnpaid, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)

	// Reprocessing skips allocations already handed to the provider.
	_, err = f.svc.ProcessMultiCard(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Len(t, f.stripe.calls, 2)

	pendingID := byMethod(t, res, "Amex").AllocationID
	settled, err := f.svc.SettleAllocation(context.Background(), AllocationSettlement{
		AllocationID: pendingID,
		PaymentID:    &payment.ID,
		Status:       enums.PaymentStatusSucceeded,
		ProviderRef:  "pi_async",
	})
	require.NoError(t, err)
	require.True(t, settled.Applied)
	require.Equal(t, enums.PaymentStatusSucceeded, settled.PaymentStatus)
	require.Equal(t, enums.PayerStatusPaid, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)

	late, err := f.svc.SettleAllocation(context.Background(), AllocationSettlement{
		AllocationID: pendingID,
		Status:       enums.PaymentStatusFailed,
		Reason:       "late failure",
	})
	require.NoError(t, err)
	require.False(t, late.Applied)
	require.Equal(t, enums.PaymentStatusSucceeded, late.PaymentStatus)
}

func TestSettleAllocationValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SettleAllocation(context.Background(), AllocationSettlement{AllocationID: uuid.New(), Status: enums.PaymentStatusPending})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SettleAllocation(context.Background(), AllocationSettlement{AllocationID: uuid.New(), Status: enums.PaymentStatusSucceeded})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProcessMultiCardRejectsSinglePayment(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid)
	res, err := f.svc.CompleteCheckout(context.Background(), CheckoutCompletion{PayerID: payers[0].ID, CollectionID: collection.ID, ProviderRef: "pi_single"})
	require.NoError(t, err)

	_, err = f.svc.ProcessMultiCard(context.Background(), *res.PaymentID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.ProcessMultiCard(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepairPaidDrift(t *testing.T) {
	f := newFixture(t)
	collection, payers := dbtest.SeedCollection(t, f.conn, 100, enums.PayerStatusUnpaid, enums.PayerStatusPaid)
	require.NoError(t, f.conn.Create(&models.Payment{
		PayerID:      payers[0].ID,
		CollectionID: collection.ID,
		Provider:     enums.ProviderStripe,
		ProviderRef:  ptr("pi_legacy"),
		Amount:       100,
		Status:       enums.PaymentStatusSucceeded,
	}).Error)

	repaired, err := f.svc.RepairPaidDrift(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, repaired)
	require.Equal(t, enums.PayerStatusPaid, dbtest.ReloadPayer(t, f.conn, payers[0].ID).Status)
	require.Equal(t, enums.CollectionStatusCompleted, dbtest.ReloadCollection(t, f.conn, collection.ID).Status)

	repaired, err = f.svc.RepairPaidDrift(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, repaired)
}
