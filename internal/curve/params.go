// internal/curve/params.go
package curve

import "fmt"

const (
	// Scale is the fixed-point representation of 1.0. It doubles as the
	// basis-point denominator for fee rates and slippage, and it is not
	// configurable: the stored parameter records of existing markets
	// depend on it bit for bit.
	Scale = 10000

	// MinCurveSteepness is the lowest steepness Validate accepts. Below
	// it the squared multiplier in PriceAt can overflow 64 bits at
	// realistic supplies.
	MinCurveSteepness = 1000

	// MaxFeeRateBps caps the trading fee at 10%.
	MaxFeeRateBps = 1000
)

// Params describes one market's bonding curve. The record is immutable
// once the market is created and is passed by value into every pricing
// call; the engine never stores it.
type Params struct {
	// InitialPrice is the unit price at zero supply, in atomic value
	// units. Must be positive.
	InitialPrice uint64 `json:"initial_price"`

	// CurveSteepness is the denominator controlling curvature: larger
	// values flatten the curve. Must be at least MinCurveSteepness.
	CurveSteepness uint64 `json:"curve_steepness"`

	// MaxSupply bounds the total outstanding supply of one outcome side.
	// Must be positive.
	MaxSupply uint64 `json:"max_supply"`

	// FeeRateBps is the trading fee in basis points, applied on top of
	// buy costs and deducted from sell payouts. At most MaxFeeRateBps.
	FeeRateBps uint16 `json:"fee_rate_bps"`
}

// Validate checks the record for internal consistency. It is the sole
// gate protecting the downstream arithmetic from pathological curvature,
// so it must run before a parameter set is accepted at market creation.
func (p Params) Validate() error {
	if p.InitialPrice == 0 {
		return fmt.Errorf("%w: initial price must be positive", ErrInvalidPrice)
	}
	if p.CurveSteepness == 0 {
		return fmt.Errorf("%w: curve steepness must be positive", ErrInvalidCurveParams)
	}
	if p.CurveSteepness < MinCurveSteepness {
		return fmt.Errorf("%w: curve steepness %d below minimum %d", ErrInvalidCurveParams, p.CurveSteepness, MinCurveSteepness)
	}
	if p.MaxSupply == 0 {
		return fmt.Errorf("%w: max supply must be positive", ErrInvalidMaxSupply)
	}
	if p.FeeRateBps > MaxFeeRateBps {
		return fmt.Errorf("%w: fee rate %d bps exceeds maximum %d", ErrFeeTooHigh, p.FeeRateBps, MaxFeeRateBps)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("curve{initial=%d steepness=%d max=%d fee=%dbps}",
		p.InitialPrice, p.CurveSteepness, p.MaxSupply, p.FeeRateBps)
}
