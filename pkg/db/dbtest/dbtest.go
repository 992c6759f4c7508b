// Package dbtest opens in-memory sqlite databases with the full schema for
// package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// Open returns a migrated sqlite database private to the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// SeedCollection inserts a collection with one payer per status, each owing
// share. The collection starts PENDING.
func SeedCollection(t testing.TB, conn *gorm.DB, share int64, statuses ...enums.PayerStatus) (*models.Collection, []models.Payer) {
	t.Helper()
	if len(statuses) == 0 {
		statuses = []enums.PayerStatus{enums.PayerStatusUnpaid}
	}
	collection := &models.Collection{
		Title:       "Dinner",
		TotalAmount: share * int64(len(statuses)),
		Currency:    enums.CurrencyINR,
		NumPayers:   len(statuses),
		PaymentMode: enums.PaymentModeSplit,
		Status:      enums.CollectionStatusPending,
	}
	require.NoError(t, conn.Create(collection).Error)

	payers := make([]models.Payer, 0, len(statuses))
	for i, status := range statuses {
		payer := models.Payer{
			CollectionID: collection.ID,
			Name:         fmt.Sprintf("Payer %d", i+1),
			ShareAmount:  share,
			Status:       status,
			Slug:         fmt.Sprintf("pay-%s", uuid.NewString()[:8]),
		}
		require.NoError(t, conn.Create(&payer).Error)
		payers = append(payers, payer)
	}
	return collection, payers
}

// ReloadPayer re-reads a payer row.
func ReloadPayer(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Payer {
	t.Helper()
	var payer models.Payer
	require.NoError(t, conn.First(&payer, "id = ?", id).Error)
	return payer
}

// ReloadCollection re-reads a collection row.
func ReloadCollection(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Collection {
	t.Helper()
	var collection models.Collection
	require.NoError(t, conn.First(&collection, "id = ?", id).Error)
	return collection
}

// CountEvents returns how many outbox rows of eventType exist.
func CountEvents(t testing.TB, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}
