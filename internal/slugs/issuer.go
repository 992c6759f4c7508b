package slugs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

const (
	DefaultPrefix   = "pay"
	randomLength    = 8
	defaultAttempts = 5
	alphabet        = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Generator produces random slug suffixes.
type Generator interface {
	Random(length int) (string, error)
}

// ExistenceChecker reports whether a slug is already persisted.
type ExistenceChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Issuer hands out payer slugs that are unique against the store and against
// the other slugs reserved by the same caller.
type Issuer struct {
	gen      Generator
	store    ExistenceChecker
	now      func() time.Time
	attempts int
}

type IssuerParams struct {
	Generator Generator
	Store     ExistenceChecker
	Now       func() time.Time
	Attempts  int
}

func NewIssuer(params IssuerParams) (*Issuer, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "slug existence checker required")
	}
	gen := params.Generator
	if gen == nil {
		gen = CryptoGenerator{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	attempts := params.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &Issuer{gen: gen, store: params.Store, now: now, attempts: attempts}, nil
}

// Issue returns a slug of the form <prefix>-<random>. After the configured
// number of collisions it falls back to <prefix>-<millis>-<random>. reserved
// may be nil; when set, the issued slug is added to it.
func (i *Issuer) Issue(ctx context.Context, prefix string, reserved map[string]struct{}) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}

	for attempt := 0; attempt < i.attempts; attempt++ {
		suffix, err := i.gen.Random(randomLength)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate slug")
		}
		candidate := prefix + "-" + suffix
		ok, err := i.available(ctx, candidate, reserved)
		if err != nil {
			return "", err
		}
		if ok {
			reserve(reserved, candidate)
			return candidate, nil
		}
	}

	suffix, err := i.gen.Random(randomLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate slug")
	}
	stamp := strconv.FormatInt(i.now().UnixMilli(), 36)
	fallback := fmt.Sprintf("%s-%s-%s", prefix, stamp, suffix)
	ok, err := i.available(ctx, fallback, reserved)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "unable to issue a unique payer link")
	}
	reserve(reserved, fallback)
	return fallback, nil
}

func (i *Issuer) available(ctx context.Context, candidate string, reserved map[string]struct{}) (bool, error) {
	if _, taken := reserved[candidate]; taken {
		return false, nil
	}
	exists, err := i.store.SlugExists(ctx, candidate)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check slug")
	}
	return !exists, nil
}

func reserve(reserved map[string]struct{}, slug string) {
	if reserved != nil {
		reserved[slug] = struct{}{}
	}
}

// CryptoGenerator draws base36 nanoids from a cryptographic source.
type CryptoGenerator struct{}

func (CryptoGenerator) Random(length int) (string, error) {
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return id, nil
}
