// internal/curve/errors.go
package curve

import "errors"

// Engine errors are terminal for the call in progress: no retries, no
// partial results. Callers are expected to abort the enclosing transaction;
// the engine itself mutates nothing.
var (
	// ErrInvalidPrice covers a zero trade amount or a zero initial price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidMaxSupply covers a buy past max supply, a sell past the
	// current supply, and a zero max supply. Both supply-bound violations
	// report the same kind, matching the on-chain program's error codes.
	ErrInvalidMaxSupply = errors.New("invalid max supply")

	// ErrInvalidCurveParams covers a zero or dangerously low curve
	// steepness.
	ErrInvalidCurveParams = errors.New("invalid curve parameters")

	// ErrFeeTooHigh covers a fee rate above MaxFeeRateBps.
	ErrFeeTooHigh = errors.New("fee rate too high")

	// ErrMathOverflow covers any checked arithmetic step that overflows,
	// underflows or divides by zero.
	ErrMathOverflow = errors.New("math overflow")
)
