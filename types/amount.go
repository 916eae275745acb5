// Package types provides the value types shared by every IOU package.
package types

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNegativeAmount is returned when an amount below zero is supplied.
	ErrNegativeAmount = errors.New("iou: amount must not be negative")

	// ErrAmountOverflow is returned when an addition would exceed the
	// representable range.
	ErrAmountOverflow = errors.New("iou: amount overflow")

	// ErrAmountUnderflow is returned when a subtraction would go below zero.
	ErrAmountUnderflow = errors.New("iou: amount underflow")
)

// Amount is a non-negative quantity of the ledger's fungible unit.
// All arithmetic is integer-only and checked.
type Amount int64

// MaxAmount is the largest representable Amount.
const MaxAmount = Amount(math.MaxInt64)

// Validate reports ErrNegativeAmount for values below zero.
func (a Amount) Validate() error {
	if a < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, int64(a))
	}
	return nil
}

// Add returns a + b, failing instead of wrapping.
func (a Amount) Add(b Amount) (Amount, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if b > MaxAmount-a {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, int64(a), int64(b))
	}
	return a + b, nil
}

// Sub returns a - b, failing instead of going below zero.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrAmountUnderflow, int64(a), int64(b))
	}
	return a - b, nil
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// PercentCeil returns ceil(a * pct / 100) without intermediate overflow.
// pct is expected in the range 0..100.
func (a Amount) PercentCeil(pct uint32) Amount {
	p := Amount(pct)
	q, r := a/100, a%100
	rem := r * p
	out := q * p
	out += rem / 100
	if rem%100 != 0 {
		out++
	}
	return out
}

// FormatMajor renders the amount with the given number of minor-unit
// decimals, e.g. 4900 with 2 decimals is "49.00".
func (a Amount) FormatMajor(decimals int) string {
	if decimals <= 0 {
		return fmt.Sprintf("%d", int64(a))
	}

	divisor := int64(1)
	for range decimals {
		divisor *= 10
	}

	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s%d.%0*d", sign, v/divisor, decimals, v%divisor)
}

// String returns the plain integer form.
func (a Amount) String() string {
	return fmt.Sprintf("%d", int64(a))
}

// Sum adds all values with overflow checking.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
