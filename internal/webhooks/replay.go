// Package webhooks holds pieces shared by the provider webhook handlers.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaykorade/zakapay-hackathon/pkg/redis"
)

// ReplayGuard remembers provider event ids so a redelivered event is
// acknowledged without being applied twice.
type ReplayGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewReplayGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*ReplayGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &ReplayGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark records eventID and reports whether it was already seen.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set replay key: %w", err)
	}
	return !set, nil
}

// Delete forgets eventID so the provider's retry is processed again.
func (g *ReplayGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
