// Package providers adapts payment processors to a single settle/checkout
// contract so the payment flows never branch on provider names.
package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
)

// OutcomeStatus is the settlement result reported by a provider.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	// OutcomePending means the provider will confirm asynchronously via webhook.
	OutcomePending OutcomeStatus = "pending"
)

// PaymentStatus maps the outcome onto the persisted allocation status.
func (s OutcomeStatus) PaymentStatus() enums.PaymentStatus {
	switch s {
	case OutcomeSucceeded:
		return enums.PaymentStatusSucceeded
	case OutcomeFailed:
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}

// Outcome is what one settle attempt produced.
type Outcome struct {
	Status      OutcomeStatus
	ProviderRef string
	Reason      string
}

// Failed builds a failed outcome carrying reason.
func Failed(reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason}
}

// SettleRequest charges one allocation of a multi-card payment.
type SettleRequest struct {
	AllocationID uuid.UUID
	PaymentID    uuid.UUID
	PayerID      uuid.UUID
	CollectionID uuid.UUID
	Amount       int64
	Currency     enums.Currency
	MethodName   string
	SourceRef    string
	Description  string
}

// Adapter settles allocations against one provider.
type Adapter interface {
	Provider() enums.Provider
	Settle(ctx context.Context, req SettleRequest) (Outcome, error)
}

// CheckoutRequest opens a hosted checkout for a payer's full share.
type CheckoutRequest struct {
	PayerID         uuid.UUID
	CollectionID    uuid.UUID
	PayerSlug       string
	PayerName       string
	PayerEmail      string
	CollectionTitle string
	Amount          int64
	Currency        enums.Currency
}

// CheckoutSession is the provider-hosted page the payer is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutCreator opens hosted checkout sessions.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// UnsupportedProviderError is returned for providers without an adapter.
type UnsupportedProviderError struct {
	Provider enums.Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("payment provider %q is not supported", string(e.Provider))
}

// Registry resolves adapters by provider.
type Registry struct {
	adapters map[enums.Provider]Adapter
}

// NewRegistry indexes adapters by their provider. nil adapters are skipped
// so optional providers can be passed unconditionally.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[enums.Provider]Adapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		r.adapters[adapter.Provider()] = adapter
	}
	return r
}

// Resolve returns the adapter for provider or *UnsupportedProviderError.
func (r *Registry) Resolve(provider enums.Provider) (Adapter, error) {
	if r != nil {
		if adapter, ok := r.adapters[provider]; ok {
			return adapter, nil
		}
	}
	return nil, &UnsupportedProviderError{Provider: provider}
}

// Providers lists the registered providers in name order.
func (r *Registry) Providers() []enums.Provider {
	if r == nil {
		return nil
	}
	out := make([]enums.Provider, 0, len(r.adapters))
	for provider := range r.adapters {
		out = append(out, provider)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
