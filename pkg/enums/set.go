package enums

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknown is wrapped by every Parse function when the input matches no
// known value.
var ErrUnknown = errors.New("unknown value")

func oneOf[T ~string](v T, known []T) bool {
	return slices.Contains(known, v)
}

// parse matches value against known after normalize; a nil normalize
// matches exactly.
func parse[T ~string](kind, value string, known []T, normalize func(string) string) (T, error) {
	candidate := value
	if normalize != nil {
		candidate = normalize(value)
	}
	if i := slices.Index(known, T(candidate)); i >= 0 {
		return known[i], nil
	}
	return "", fmt.Errorf("%w: %s %q", ErrUnknown, kind, value)
}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
