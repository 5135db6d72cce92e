// Package curve implements the bonding-curve pricing engine for binary
// prediction markets: a deterministic quadratic curve mapping outstanding
// token supply to unit price.
//
// All arithmetic is unsigned 64-bit fixed point with a scale of 10000
// representing 1.0 (the same unit used for basis points). There is no
// floating point anywhere in this package, and every add, subtract,
// multiply and divide is overflow-checked; a failed step aborts the whole
// computation with ErrMathOverflow instead of saturating.
//
// The engine is stateless and purely functional. It never owns the current
// supply — callers pass it on every invocation — and it performs no I/O,
// holds no locks, and is safe for arbitrarily many concurrent callers.
//
// Operations:
//
//   - Params.Validate: consistency gate for a parameter record.
//   - Params.PriceAt: instantaneous unit price at a given supply.
//   - Params.BuyQuote / Params.SellQuote: trade cost/payout over a supply
//     range via trapezoidal integration, fee applied.
//   - Params.Slippage: basis-point deviation of the average execution
//     price from the spot price.
//   - Params.MarketCap: exact closed-form integral of the curve from zero
//     to a given supply.
//
// The 26-byte little-endian wire layout of Params (codec.go) is shared
// with the on-chain program and must stay bit-for-bit stable.
package curve
