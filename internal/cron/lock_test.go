package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "lock:cron", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	require.Contains(t, store.values, "lock:cron")

	require.NoError(t, first.Release(context.Background()))
	require.NotContains(t, store.values, "lock:cron")
}

func TestRedisLockDoesNotDeleteForeignLease(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another worker took it
	store.values["lock:cron"] = "someone-else"
	require.NoError(t, lock.Release(context.Background()))
	require.Equal(t, "someone-else", store.values["lock:cron"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryLockStore{}, "", time.Minute)
	require.Error(t, err)
}
