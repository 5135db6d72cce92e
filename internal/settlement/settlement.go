// internal/settlement/settlement.go

// Package settlement finalizes markets from oracle data and pays out
// winning token holders. The functions here mutate market and oracle
// records in place after running the full validation chain; callers
// (internal/engine) serialize access per market and own persistence,
// vault accounting and event emission.
package settlement

import (
	"fmt"
	"time"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
)

// Settle finalizes a market from one oracle readout. The pool is the
// vault balance backing payouts at settlement time; it is captured into
// the settlement record and fixed from then on. Anyone may settle once
// the resolution date passes, so every gate is re-checked here.
func Settle(m *market.Market, data *oracle.Data, pool uint64, now time.Time) (*market.SettlementData, error) {
	if m.Status.Settled {
		return nil, market.ErrMarketSettled
	}
	if now.Before(m.ResolutionDate) {
		return nil, fmt.Errorf("%w: resolves at %s", ErrNotYetResolved, m.ResolutionDate.Format(time.RFC3339))
	}
	if data.MarketID != m.ID {
		return nil, ErrOracleMarketMismatch
	}
	if data.ProviderID != m.OracleSource {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrUnauthorizedOracle, data.ProviderID, m.OracleSource)
	}
	if data.Disputed {
		return nil, ErrDisputedData
	}
	if !data.VerifyIntegrity() {
		return nil, ErrCorruptedData
	}
	if int(data.WinningOutcome) >= len(m.Outcomes) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWinningOutcome, data.WinningOutcome)
	}

	outcome := data.WinningOutcome
	settledAt := now
	m.Status.Settled = true
	m.Status.WinningOutcome = &outcome
	m.Status.SettledAt = &settledAt
	m.Settlement = &market.SettlementData{
		WinningOutcome: outcome,
		SettledAt:      settledAt,
		OracleDataHash: data.DataHash,
		TotalPayout:    pool,
		WinningSupply:  m.Outcomes[outcome].Supply,
	}
	return m.Settlement, nil
}

// Payout computes the proportional share for a holder of the winning
// mint without mutating anything. balance/winning_supply of the pool,
// widened through 128 bits so pool*balance cannot wrap. The denominator
// is the supply frozen at settlement, so the share does not drift as
// other holders redeem and burn.
func Payout(m *market.Market, holderMint string, balance uint64) (uint64, error) {
	if !m.Status.Settled {
		return 0, market.ErrMarketNotSettled
	}
	if m.Status.WinningOutcome == nil {
		return 0, ErrNoWinningOutcome
	}
	winning := &m.Outcomes[*m.Status.WinningOutcome]
	if holderMint != winning.Mint {
		return 0, fmt.Errorf("%w: %s", ErrNotWinningTokens, holderMint)
	}
	if balance == 0 {
		return 0, ErrNothingToRedeem
	}
	if m.Settlement == nil {
		return 0, ErrNoSettlementData
	}
	if m.Settlement.WinningSupply == 0 {
		return 0, ErrNoWinningSupply
	}

	payout, err := curve.MulDiv(m.Settlement.TotalPayout, balance, m.Settlement.WinningSupply)
	if err != nil {
		return 0, fmt.Errorf("payout share: %w", err)
	}
	if payout == 0 {
		return 0, ErrNoPayout
	}
	return payout, nil
}

// Claim redeems a holder's winning tokens: it computes the payout,
// debits the vault and burns the redeemed balance from the winning
// supply, so later claims split what remains. Returns the payout and
// the vault balance after the debit.
func Claim(m *market.Market, vaultBalance uint64, holderMint string, balance uint64) (payout, newVault uint64, err error) {
	payout, err = Payout(m, holderMint, balance)
	if err != nil {
		return 0, 0, err
	}

	newVault, err = curve.CheckedSub(vaultBalance, payout)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %d < %d", ErrVaultUnderfunded, vaultBalance, payout)
	}

	winning := &m.Outcomes[*m.Status.WinningOutcome]
	burned, err := curve.CheckedSub(winning.Supply, balance)
	if err != nil {
		return 0, 0, fmt.Errorf("burn: %w", err)
	}
	winning.Supply = burned
	return payout, newVault, nil
}
