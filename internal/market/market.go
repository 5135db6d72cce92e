// internal/market/market.go

// Package market holds the domain model for binary prediction markets:
// the market record, its outcome tokens, lifecycle status and settlement
// data. The types here are plain data plus validation; persistence lives
// in internal/storage and orchestration in internal/engine. Mutating
// methods assume the caller serializes writes per market.
package market

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
)

const (
	// MaxDescriptionLen bounds the market description.
	MaxDescriptionLen = 100

	// MinimumLiquidityThreshold is the smallest seed liquidity that can
	// activate a market, in atomic units (0.001 SOL).
	MinimumLiquidityThreshold uint64 = 1_000_000

	// MinimumTradingVolume marks a market as mature enough for
	// settlement reporting, in atomic units (0.01 SOL).
	MinimumTradingVolume uint64 = 10_000_000
)

// Status tracks where a market is in its lifecycle.
type Status struct {
	Active         bool       `json:"active"`
	Settled        bool       `json:"settled"`
	WinningOutcome *Outcome   `json:"winning_outcome,omitempty"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
}

// SettlementData is written once when oracle data finalizes the market.
// WinningSupply freezes the winning token supply at settlement time so
// every claim is priced against the same denominator; burns afterwards
// only track what is left to redeem.
type SettlementData struct {
	WinningOutcome Outcome   `json:"winning_outcome"`
	SettledAt      time.Time `json:"settled_at"`
	OracleDataHash [32]byte  `json:"oracle_data_hash"`
	TotalPayout    uint64    `json:"total_payout"`
	WinningSupply  uint64    `json:"winning_supply"`
}

// Market is one binary prediction market. The bonding curve parameters
// are immutable after creation; outcome supplies and total volume move
// with every trade.
type Market struct {
	ID             uuid.UUID       `json:"id"`
	Creator        string          `json:"creator"`
	Description    string          `json:"description"`
	ResolutionDate time.Time       `json:"resolution_date"`
	OracleSource   string          `json:"oracle_source"`
	Outcomes       [2]OutcomeToken `json:"outcomes"`
	Params         curve.Params    `json:"params"`
	TotalVolume    uint64          `json:"total_volume"`
	Status         Status          `json:"status"`
	Settlement     *SettlementData `json:"settlement,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// New validates and builds a market record. The curve parameters are
// checked here, once, before the record is accepted anywhere; markets
// start inactive until Activate seeds them with liquidity.
func New(creator, description string, resolutionDate time.Time, oracleSource string, mints []string, params curve.Params) (*Market, error) {
	if len(description) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: %d chars, max %d", ErrDescriptionTooLong, len(description), MaxDescriptionLen)
	}
	if len(mints) < 2 {
		return nil, ErrInsufficientOutcomes
	}
	if len(mints) > 2 {
		return nil, ErrTooManyOutcomes
	}
	if !resolutionDate.After(time.Now()) {
		return nil, ErrInvalidResolutionDate
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("curve params rejected: %w", err)
	}

	return &Market{
		ID:             uuid.New(),
		Creator:        creator,
		Description:    description,
		ResolutionDate: resolutionDate,
		OracleSource:   oracleSource,
		Outcomes: [2]OutcomeToken{
			{Side: OutcomeYes, Mint: mints[0]},
			{Side: OutcomeNo, Mint: mints[1]},
		},
		Params:    params,
		CreatedAt: time.Now(),
	}, nil
}

// Activate opens the market for trading. The seed liquidity must meet
// the minimum threshold so the curve has a real backing pool.
func (m *Market) Activate(seedLiquidity uint64) error {
	if m.Status.Settled {
		return ErrMarketSettled
	}
	if m.Status.Active {
		return ErrMarketAlreadyActive
	}
	if seedLiquidity < MinimumLiquidityThreshold {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientLiquidity, seedLiquidity, MinimumLiquidityThreshold)
	}
	m.Status.Active = true
	return nil
}

// CanTrade reports whether the market accepts orders right now.
func (m *Market) CanTrade() error {
	if m.Status.Settled {
		return ErrMarketSettled
	}
	if !m.Status.Active {
		return ErrMarketNotActive
	}
	if !time.Now().Before(m.ResolutionDate) {
		return ErrTradingClosed
	}
	return nil
}

// Outcome returns the token record for one side.
func (m *Market) Outcome(side Outcome) (*OutcomeToken, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutcome, side)
	}
	return &m.Outcomes[side], nil
}

// ApplyBuy records an executed buy: supply grows by amount, volume by
// the paid cost. The engine has already enforced the max-supply cap, but
// both updates stay overflow-checked.
func (m *Market) ApplyBuy(side Outcome, amount, cost uint64) error {
	token, err := m.Outcome(side)
	if err != nil {
		return err
	}
	newSupply, err := curve.CheckedAdd(token.Supply, amount)
	if err != nil {
		return fmt.Errorf("supply update: %w", err)
	}
	newVolume, err := curve.CheckedAdd(m.TotalVolume, cost)
	if err != nil {
		return fmt.Errorf("volume update: %w", err)
	}
	token.Supply = newSupply
	m.TotalVolume = newVolume
	return nil
}

// ApplySell records an executed sell: supply shrinks by amount, volume
// still grows by the payout (volume counts turnover, not direction).
func (m *Market) ApplySell(side Outcome, amount, payout uint64) error {
	token, err := m.Outcome(side)
	if err != nil {
		return err
	}
	newSupply, err := curve.CheckedSub(token.Supply, amount)
	if err != nil {
		return fmt.Errorf("supply update: %w", err)
	}
	newVolume, err := curve.CheckedAdd(m.TotalVolume, payout)
	if err != nil {
		return fmt.Errorf("volume update: %w", err)
	}
	token.Supply = newSupply
	m.TotalVolume = newVolume
	return nil
}

// Mature reports whether traded volume passed the minimum that makes a
// settlement meaningful. Advisory only: settlement itself is gated by
// the resolution date and oracle data, not by volume.
func (m *Market) Mature() bool {
	return m.TotalVolume >= MinimumTradingVolume
}
