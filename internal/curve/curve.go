// internal/curve/curve.go
package curve

import "fmt"

// PriceAt computes the instantaneous unit price at the given supply.
// Formula: price = initial_price * (1 + supply/curve_steepness)^2,
// evaluated entirely in scaled integers.
//
// The price is non-decreasing in supply for any record that passes
// Validate.
func (p Params) PriceAt(supply uint64) (uint64, error) {
	if supply == 0 {
		return p.InitialPrice, nil
	}

	// ratio = supply / curve_steepness, scaled by 10000.
	scaled, err := CheckedMul(supply, Scale)
	if err != nil {
		return 0, err
	}
	ratio, err := CheckedDiv(scaled, p.CurveSteepness)
	if err != nil {
		return 0, err
	}

	multiplier, err := CheckedAdd(Scale, ratio)
	if err != nil {
		return 0, err
	}

	// (1 + supply/curve_steepness)^2, still scaled by 10000.
	sq, err := CheckedMul(multiplier, multiplier)
	if err != nil {
		return 0, err
	}
	sq, err = CheckedDiv(sq, Scale)
	if err != nil {
		return 0, err
	}

	price, err := CheckedMul(p.InitialPrice, sq)
	if err != nil {
		return 0, err
	}
	return CheckedDiv(price, Scale)
}

// BuyQuote computes the total cost, fee included, of buying amount tokens
// when currentSupply are already outstanding. The cost is the trapezoidal
// average of the endpoint prices times the amount, plus the trading fee.
func (p Params) BuyQuote(currentSupply, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: buy amount must be positive", ErrInvalidPrice)
	}
	newSupply, err := CheckedAdd(currentSupply, amount)
	if err != nil {
		return 0, err
	}
	if newSupply > p.MaxSupply {
		return 0, fmt.Errorf("%w: buying %d at supply %d exceeds max supply %d",
			ErrInvalidMaxSupply, amount, currentSupply, p.MaxSupply)
	}

	base, err := p.trapezoid(currentSupply, newSupply, amount)
	if err != nil {
		return 0, err
	}
	fee, err := p.feeOn(base)
	if err != nil {
		return 0, err
	}
	return CheckedAdd(base, fee)
}

// SellQuote computes the payout, after fee, of selling amount tokens when
// currentSupply are outstanding. Same trapezoidal average over
// [currentSupply-amount, currentSupply], with the fee subtracted instead
// of added; the asymmetry is the bid/ask spread that makes an immediate
// round trip unprofitable.
func (p Params) SellQuote(currentSupply, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: sell amount must be positive", ErrInvalidPrice)
	}
	if amount > currentSupply {
		// Same kind as the buy-side cap violation, matching the
		// on-chain program's error codes.
		return 0, fmt.Errorf("%w: selling %d exceeds current supply %d",
			ErrInvalidMaxSupply, amount, currentSupply)
	}

	base, err := p.trapezoid(currentSupply-amount, currentSupply, amount)
	if err != nil {
		return 0, err
	}
	fee, err := p.feeOn(base)
	if err != nil {
		return 0, err
	}
	return CheckedSub(base, fee)
}

// Slippage reports how far the average unit price of a trade deviates
// from the spot price at currentSupply, in basis points. isBuy selects
// which quote the average is taken from. Larger amounts widen the
// endpoint spread, so slippage grows with trade size.
func (p Params) Slippage(currentSupply, amount uint64, isBuy bool) (uint16, error) {
	spot, err := p.PriceAt(currentSupply)
	if err != nil {
		return 0, err
	}

	var quote uint64
	if isBuy {
		quote, err = p.BuyQuote(currentSupply, amount)
	} else {
		quote, err = p.SellQuote(currentSupply, amount)
	}
	if err != nil {
		return 0, err
	}

	actual, err := CheckedDiv(quote, amount)
	if err != nil {
		return 0, err
	}

	var diff uint64
	if actual >= spot {
		diff = actual - spot
	} else {
		diff = spot - actual
	}

	scaled, err := CheckedMul(diff, Scale)
	if err != nil {
		return 0, err
	}
	bps, err := CheckedDiv(scaled, spot)
	if err != nil {
		return 0, err
	}
	return uint16(bps), nil
}

// MarketCap computes the exact value of all outstanding tokens: the
// closed-form integral of the price curve from zero to supply,
// initial_price * supply * (1 + supply/(2*curve_steepness)). Unlike the
// trade quotes this needs no approximation because the antiderivative of
// the quadratic is tractable. Strictly increasing in supply.
func (p Params) MarketCap(supply uint64) (uint64, error) {
	if supply == 0 {
		return 0, nil
	}

	scaled, err := CheckedMul(supply, Scale)
	if err != nil {
		return 0, err
	}
	denom, err := CheckedMul(2, p.CurveSteepness)
	if err != nil {
		return 0, err
	}
	factor, err := CheckedDiv(scaled, denom)
	if err != nil {
		return 0, err
	}
	multiplier, err := CheckedAdd(Scale, factor)
	if err != nil {
		return 0, err
	}

	cap, err := CheckedMul(p.InitialPrice, supply)
	if err != nil {
		return 0, err
	}
	cap, err = CheckedMul(cap, multiplier)
	if err != nil {
		return 0, err
	}
	return CheckedDiv(cap, Scale)
}

// trapezoid approximates the integral of the price curve over
// [from, to] as the average of the endpoint prices times the width.
// Second-order accurate, O(1), and monotonic in fixed point.
func (p Params) trapezoid(from, to, width uint64) (uint64, error) {
	startPrice, err := p.PriceAt(from)
	if err != nil {
		return 0, err
	}
	endPrice, err := p.PriceAt(to)
	if err != nil {
		return 0, err
	}
	sum, err := CheckedAdd(startPrice, endPrice)
	if err != nil {
		return 0, err
	}
	return CheckedMul(sum/2, width)
}

// feeOn computes the trading fee on a base cost or payout:
// base * fee_rate / 10000.
func (p Params) feeOn(base uint64) (uint64, error) {
	scaled, err := CheckedMul(base, uint64(p.FeeRateBps))
	if err != nil {
		return 0, err
	}
	return CheckedDiv(scaled, Scale)
}
