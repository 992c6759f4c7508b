package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

// maxCursorLength bounds the opaque pagination cursor accepted from clients.
const maxCursorLength = 512

// QueryLimit parses a page size, falling back to def when the parameter is
// absent. Values outside [1, max] are rejected.
func QueryLimit(r *http.Request, key string, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a whole number", key).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if value < 1 || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" out of range").
			WithDetails(map[string]any{"field": key, "min": 1, "max": max})
	}
	return value, nil
}

// QueryUUID parses an optional UUID filter. An absent parameter yields nil.
func QueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).
			WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// QueryCursor returns the raw pagination cursor; decoding is left to the
// pagination package.
func QueryCursor(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if utf8.RuneCountInString(raw) > maxCursorLength {
		return "", pkgerrors.Invalid(key, "invalid "+key)
	}
	return raw, nil
}
