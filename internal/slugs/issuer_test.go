package slugs

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	existing map[string]bool
	checked  []string
	err      error
}

func (f *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	f.checked = append(f.checked, slug)
	if f.err != nil {
		return false, f.err
	}
	return f.existing[slug], nil
}

type sequenceGenerator struct {
	values []string
	calls  int
}

func (s *sequenceGenerator) Random(int) (string, error) {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v, nil
}

func TestIssueReturnsFirstFreeCandidate(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"pay-aaaaaaaa": true}}
	issuer, err := NewIssuer(IssuerParams{
		Store:     store,
		Generator: &sequenceGenerator{values: []string{"aaaaaaaa", "bbbbbbbb"}},
	})
	require.NoError(t, err)

	slug, err := issuer.Issue(context.Background(), "", nil)
	require.NoError(t, err)
	require.Equal(t, "pay-bbbbbbbb", slug)
	require.Equal(t, []string{"pay-aaaaaaaa", "pay-bbbbbbbb"}, store.checked)
}

func TestIssueFallsBackAfterForcedCollisions(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"pay-dupdupdu": true}}
	now := time.UnixMilli(1730000000000)
	issuer, err := NewIssuer(IssuerParams{
		Store:     store,
		Generator: &sequenceGenerator{values: []string{"dupdupdu"}},
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	slug, err := issuer.Issue(context.Background(), "pay", nil)
	require.NoError(t, err)
	require.NotEqual(t, "pay-dupdupdu", slug)
	require.Equal(t, "pay-"+strconvBase36(now.UnixMilli())+"-dupdupdu", slug)
	require.Len(t, store.checked, defaultAttempts+1)
}

func TestIssueFailsWhenFallbackCollides(t *testing.T) {
	now := time.UnixMilli(42)
	fallback := "pay-" + strconvBase36(42) + "-zzzzzzzz"
	store := &fakeStore{existing: map[string]bool{"pay-zzzzzzzz": true, fallback: true}}
	issuer, err := NewIssuer(IssuerParams{
		Store:     store,
		Generator: &sequenceGenerator{values: []string{"zzzzzzzz"}},
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), "pay", nil)
	require.Error(t, err)
}

func TestIssueHonoursReservedSlugs(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	issuer, err := NewIssuer(IssuerParams{
		Store:     store,
		Generator: &sequenceGenerator{values: []string{"samesame", "samesame", "other123"}},
	})
	require.NoError(t, err)

	reserved := map[string]struct{}{}
	first, err := issuer.Issue(context.Background(), "pay", reserved)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), "pay", reserved)
	require.NoError(t, err)

	require.Equal(t, "pay-samesame", first)
	require.Equal(t, "pay-other123", second)
	require.Len(t, reserved, 2)
}

func TestIssuePropagatesStoreErrors(t *testing.T) {
	issuer, err := NewIssuer(IssuerParams{Store: &fakeStore{err: errors.New("db down")}})
	require.NoError(t, err)
	_, err = issuer.Issue(context.Background(), "pay", nil)
	require.Error(t, err)
}

func TestNewIssuerRequiresStore(t *testing.T) {
	_, err := NewIssuer(IssuerParams{})
	require.Error(t, err)
}

func TestCryptoGeneratorAlphabet(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{8}$`)
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		v, err := CryptoGenerator{}.Random(8)
		require.NoError(t, err)
		require.Regexp(t, re, v)
		seen[v] = struct{}{}
	}
	require.Greater(t, len(seen), 45)
}

func TestDefaultIssuerShape(t *testing.T) {
	issuer, err := NewIssuer(IssuerParams{Store: &fakeStore{}})
	require.NoError(t, err)
	slug, err := issuer.Issue(context.Background(), "pay", nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(slug, "pay-"))
	require.Len(t, slug, len("pay-")+8)
}

func strconvBase36(v int64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if v == 0 {
		return "0"
	}
	var out []byte
	for v > 0 {
		out = append([]byte{digits[v%36]}, out...)
		v /= 36
	}
	return string(out)
}
