// Package split turns a collection total into per-payer integer shares.
// All amounts are in the currency's minor unit.
package split

import (
	"fmt"

	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
)

const (
	MinPayers = 1
	MaxPayers = 100
)

// Equal divides total across n payers. The first total%n payers receive one
// extra minor unit so the shares always sum to total. When total < n the
// trailing shares are zero.
func Equal(total int64, n int) ([]int64, error) {
	if err := validateTotal(total); err != nil {
		return nil, err
	}
	if err := validateCount(n); err != nil {
		return nil, err
	}

	base := total / int64(n)
	remainder := total % int64(n)

	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares, nil
}

// Custom validates explicit shares against total. The amounts are returned
// unchanged; no rounding or adjustment is applied.
func Custom(total int64, amounts []int64) ([]int64, error) {
	if err := validateTotal(total); err != nil {
		return nil, err
	}
	if err := validateCount(len(amounts)); err != nil {
		return nil, err
	}
	for i, amount := range amounts {
		if amount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payer %d amount must be positive", i+1)).
				WithDetails(map[string]any{"index": i, "amount": amount})
		}
	}
	if sum := Sum(amounts); sum != total {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom amounts must sum to the total amount").
			WithDetails(map[string]any{"expected": total, "actual": sum})
	}

	shares := make([]int64, len(amounts))
	copy(shares, amounts)
	return shares, nil
}

// SelfPay assigns the whole total to a single payer.
func SelfPay(total int64) ([]int64, error) {
	if err := validateTotal(total); err != nil {
		return nil, err
	}
	return []int64{total}, nil
}

// ValidateAllocations checks that multi-card allocation amounts are positive
// and cover share exactly.
func ValidateAllocations(share int64, amounts []int64) error {
	if len(amounts) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one allocation is required")
	}
	for i, amount := range amounts {
		if amount <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("allocation %d amount must be positive", i+1)).
				WithDetails(map[string]any{"index": i, "amount": amount})
		}
	}
	if sum := Sum(amounts); sum != share {
		return pkgerrors.New(pkgerrors.CodeValidation, "allocations must sum to the payer share").
			WithDetails(map[string]any{"expected": share, "actual": sum})
	}
	return nil
}

func Sum(amounts []int64) int64 {
	var sum int64
	for _, amount := range amounts {
		sum += amount
	}
	return sum
}

func validateTotal(total int64) error {
	if total <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive").
			WithDetails(map[string]any{"total_amount": total})
	}
	return nil
}

func validateCount(n int) error {
	if n < MinPayers || n > MaxPayers {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("number of payers must be between %d and %d", MinPayers, MaxPayers)).
			WithDetails(map[string]any{"num_payers": n})
	}
	return nil
}
