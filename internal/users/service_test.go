package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

func openUsersDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func TestUpsertByEmailCreatesOnce(t *testing.T) {
	conn := openUsersDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	first, err := svc.UpsertByEmail(context.Background(), nil, " Alice@Example.com ", "")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", first.Email)
	require.Equal(t, "alice", first.Name)

	second, err := svc.UpsertByEmail(context.Background(), nil, "alice@example.com", "Alice Smith")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "alice", second.Name)

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestUpsertByEmailRejectsInvalidAddress(t *testing.T) {
	svc, err := NewService(NewRepository(openUsersDB(t)))
	require.NoError(t, err)

	_, err = svc.UpsertByEmail(context.Background(), nil, "not-an-email", "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLocalPart(t *testing.T) {
	require.Equal(t, "bob", LocalPart("bob@example.com"))
	require.Equal(t, "plain", LocalPart("plain"))
}
