// internal/market/errors.go
package market

import "errors"

var (
	ErrDescriptionTooLong    = errors.New("market description too long")
	ErrInvalidResolutionDate = errors.New("resolution date must be in the future")
	ErrInsufficientOutcomes  = errors.New("market needs two outcomes")
	ErrTooManyOutcomes       = errors.New("only binary markets are supported")
	ErrUnknownOutcome        = errors.New("unknown outcome")

	ErrMarketNotActive     = errors.New("market is not active")
	ErrMarketAlreadyActive = errors.New("market is already active")
	ErrMarketSettled       = errors.New("market is already settled")
	ErrMarketNotSettled    = errors.New("market is not settled")
	ErrTradingClosed       = errors.New("trading closed: past resolution date")

	ErrInsufficientLiquidity = errors.New("seed liquidity below minimum threshold")
)
