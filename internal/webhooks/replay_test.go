package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	err    error
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "splitpay:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestReplayGuardMarksOnce(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	guard, err := NewReplayGuard(store, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, guard.Delete(context.Background(), "evt_1"))
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestReplayGuardErrors(t *testing.T) {
	_, err := NewReplayGuard(nil, time.Hour, "x")
	require.Error(t, err)
	_, err = NewReplayGuard(&memoryStore{}, -time.Second, "x")
	require.Error(t, err)
	_, err = NewReplayGuard(&memoryStore{}, time.Hour, "")
	require.Error(t, err)

	guard, err := NewReplayGuard(&memoryStore{values: map[string]string{}, err: errors.New("down")}, time.Hour, "x")
	require.NoError(t, err)
	_, err = guard.CheckAndMark(context.Background(), "evt")
	require.Error(t, err)
	_, err = guard.CheckAndMark(context.Background(), "")
	require.Error(t, err)
}
