package users

import (
	"context"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/pkg/db/models"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

// Service upserts collection creators.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	return &Service{repo: repo}, nil
}

// UpsertByEmail returns the user for email, creating it when missing. name
// defaults to the local part of the address. tx may be nil.
func (s *Service) UpsertByEmail(ctx context.Context, tx *gorm.DB, email, name string) (*models.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = LocalPart(normalized)
	}

	repo := s.repo.WithTx(tx)
	if err := repo.InsertIfAbsent(ctx, &models.User{Email: normalized, Name: name}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert creator")
	}
	user, err := repo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load creator")
	}
	return user, nil
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid creator email").
			WithDetails(map[string]any{"field": "creator_email"})
	}
	return trimmed, nil
}

// LocalPart returns the portion of email before the @.
func LocalPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
