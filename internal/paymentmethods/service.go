package paymentmethods

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

// Spec identifies a payment method by (Name, Provider). It carries no
// payer-specific source token; those live on the allocation.
type Spec struct {
	Name     string
	Type     enums.PaymentMethodType
	Provider enums.Provider
}

// ParseSpec validates raw request values into a Spec. index is reported in
// error details so callers can point at the offending allocation.
func ParseSpec(index int, name, methodType, provider string) (Spec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Spec{}, invalid(index, "name", "payment method name is required")
	}

	parsedType := enums.PaymentMethodTypeCard
	if strings.TrimSpace(methodType) != "" {
		t, err := enums.ParsePaymentMethodType(methodType)
		if err != nil {
			return Spec{}, invalid(index, "type", "unknown payment method type")
		}
		parsedType = t
	}

	parsedProvider, err := enums.ParseProvider(provider)
	if err != nil || parsedProvider == enums.ProviderMultiCard {
		return Spec{}, invalid(index, "provider", "unknown payment provider")
	}

	return Spec{
		Name:     name,
		Type:     parsedType,
		Provider: parsedProvider,
	}, nil
}

func invalid(index int, field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"index": index, "field": field})
}

// Service resolves payment methods with lookup-or-create semantics.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method repository required")
	}
	return &Service{repo: repo}, nil
}

// Resolve returns the method for spec, creating it when missing.
func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, spec Spec) (*models.PaymentMethod, error) {
	repo := s.repo.WithTx(tx)

	candidate := &models.PaymentMethod{
		Name:     spec.Name,
		Type:     spec.Type,
		Provider: spec.Provider,
	}
	if err := repo.InsertIfAbsent(ctx, candidate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment method")
	}

	method, err := repo.FindByNameProvider(ctx, spec.Name, spec.Provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment method")
	}
	return method, nil
}
