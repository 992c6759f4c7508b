package validators

import (
	"strings"
	"unicode"

	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

// MaxSlugLength caps payer slugs accepted from URLs and request bodies.
const MaxSlugLength = 100

// TruncateRunes trims input and cuts it to at most max runes, dropping
// control characters.
func TruncateRunes(input string, max int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if max <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) > max {
		return strings.TrimSpace(string(runes[:max]))
	}
	return cleaned
}

// NormalizeSlug lowercases a payer slug and rejects anything outside the
// issued alphabet (base36 plus '-').
func NormalizeSlug(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payer slug is required")
	}
	if len(slug) > MaxSlugLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payer slug too long").
			WithDetails(map[string]any{"field": "slug", "max": MaxSlugLength})
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "payer slug has invalid characters").
				WithDetails(map[string]any{"field": "slug"})
		}
	}
	return slug, nil
}
