package split

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

func TestEqualSumsToTotal(t *testing.T) {
	totals := []int64{1, 7, 99, 100, 101, 333, 1000, 99999, 123456789}
	for _, total := range totals {
		for n := MinPayers; n <= MaxPayers; n++ {
			shares, err := Equal(total, n)
			require.NoError(t, err, "total=%d n=%d", total, n)
			require.Len(t, shares, n)
			require.Equal(t, total, Sum(shares), "total=%d n=%d", total, n)

			min, max := shares[0], shares[0]
			for _, share := range shares {
				if share < min {
					min = share
				}
				if share > max {
					max = share
				}
			}
			require.LessOrEqual(t, max-min, int64(1), "total=%d n=%d", total, n)
		}
	}
}

func TestEqualRemainderGoesToFirstPayers(t *testing.T) {
	shares, err := Equal(100, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{34, 33, 33}, shares)

	shares, err = Equal(1001, 4)
	require.NoError(t, err)
	require.Equal(t, []int64{251, 250, 250, 250}, shares)
}

func TestEqualSmallTotals(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		want  []int64
	}{
		{1, 3, []int64{1, 0, 0}},
		{2, 3, []int64{1, 1, 0}},
		{3, 3, []int64{1, 1, 1}},
	}
	for _, tc := range cases {
		shares, err := Equal(tc.total, tc.n)
		require.NoError(t, err)
		require.Equal(t, tc.want, shares)
	}

	shares, err := Equal(99, 100)
	require.NoError(t, err)
	require.Equal(t, int64(99), Sum(shares))
	require.Zero(t, shares[99])
}

func TestEqualRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		total int64
		n     int
	}{
		{"zero total", 0, 2},
		{"negative total", -5, 2},
		{"no payers", 100, 0},
		{"too many payers", 100, 101},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Equal(tc.total, tc.n)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestCustomRequiresExactSum(t *testing.T) {
	shares, err := Custom(100, []int64{50, 30, 20})
	require.NoError(t, err)
	require.Equal(t, []int64{50, 30, 20}, shares)

	_, err = Custom(100, []int64{50, 30, 19})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, int64(100), details["expected"])
	require.Equal(t, int64(99), details["actual"])

	_, err = Custom(100, []int64{101, -1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Custom(100, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCustomDoesNotAliasInput(t *testing.T) {
	amounts := []int64{60, 40}
	shares, err := Custom(100, amounts)
	require.NoError(t, err)
	shares[0] = 1
	require.Equal(t, int64(60), amounts[0])
}

func TestSelfPay(t *testing.T) {
	shares, err := SelfPay(2500)
	require.NoError(t, err)
	require.Equal(t, []int64{2500}, shares)

	_, err = SelfPay(0)
	require.Error(t, err)
}

func TestValidateAllocations(t *testing.T) {
	require.NoError(t, ValidateAllocations(1000, []int64{600, 400}))
	require.Error(t, ValidateAllocations(1000, []int64{600, 399}))
	require.Error(t, ValidateAllocations(1000, []int64{1000, 0}))
	require.Error(t, ValidateAllocations(1000, nil))
}
