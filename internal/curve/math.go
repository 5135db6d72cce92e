// internal/curve/math.go
package curve

import "math/bits"

// Checked unsigned 64-bit arithmetic. Every helper returns ErrMathOverflow
// on overflow, underflow or a zero divisor; results are never saturated.
// The helpers are exported because the market and settlement layers reuse
// them for volume and payout bookkeeping.

// CheckedAdd returns a+b or ErrMathOverflow if the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrMathOverflow if b exceeds a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

// CheckedMul returns a*b or ErrMathOverflow if the product exceeds 64 bits.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMathOverflow
	}
	return lo, nil
}

// CheckedDiv returns a/b or ErrMathOverflow if b is zero.
func CheckedDiv(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrMathOverflow
	}
	return a / b, nil
}

// MulDiv returns a*b/denom using a 128-bit intermediate product, so the
// multiplication may exceed 64 bits as long as the final quotient fits.
// Used by the settlement layer for proportional payouts.
func MulDiv(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ErrMathOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= denom {
		// Quotient would need more than 64 bits.
		return 0, ErrMathOverflow
	}
	quo, _ := bits.Div64(hi, lo, denom)
	return quo, nil
}
