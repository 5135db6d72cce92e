// internal/settlement/errors.go
package settlement

import "errors"

// Settlement gates. Market-level gates (already settled, not settled
// yet) reuse the sentinels from internal/market.
var (
	// ErrNotYetResolved rejects settlement before the resolution date.
	ErrNotYetResolved = errors.New("settlement: market has not reached its resolution date")

	// ErrOracleMarketMismatch rejects oracle data recorded for a
	// different market.
	ErrOracleMarketMismatch = errors.New("settlement: oracle data belongs to another market")

	// ErrUnauthorizedOracle rejects data from a provider that is not
	// the market's designated oracle source.
	ErrUnauthorizedOracle = errors.New("settlement: oracle provider not authorized for this market")

	// ErrDisputedData rejects oracle data under an open dispute.
	ErrDisputedData = errors.New("settlement: oracle data is disputed")

	// ErrCorruptedData rejects oracle data whose integrity hash does
	// not verify.
	ErrCorruptedData = errors.New("settlement: oracle data failed integrity check")

	// ErrInvalidWinningOutcome rejects an outcome index outside the
	// market's outcome set.
	ErrInvalidWinningOutcome = errors.New("settlement: winning outcome out of range")
)

// Payout gates.
var (
	// ErrNoWinningOutcome means the market settled without a recorded
	// winner. Should not happen; kept as a hard stop.
	ErrNoWinningOutcome = errors.New("settlement: no winning outcome recorded")

	// ErrNotWinningTokens rejects a claim backed by the losing mint.
	ErrNotWinningTokens = errors.New("settlement: tokens are not the winning mint")

	// ErrNothingToRedeem rejects a claim with a zero balance.
	ErrNothingToRedeem = errors.New("settlement: no tokens to redeem")

	// ErrNoSettlementData means the settled market carries no payout
	// record.
	ErrNoSettlementData = errors.New("settlement: missing settlement data")

	// ErrNoWinningSupply means every winning token was already burned.
	ErrNoWinningSupply = errors.New("settlement: winning supply is zero")

	// ErrNoPayout rejects claims whose proportional share rounds to
	// zero.
	ErrNoPayout = errors.New("settlement: payout rounds to zero")

	// ErrVaultUnderfunded means the vault cannot cover the computed
	// payout.
	ErrVaultUnderfunded = errors.New("settlement: vault cannot cover payout")
)

// Dispute gates.
var (
	// ErrReasonTooLong bounds the dispute reason.
	ErrReasonTooLong = errors.New("dispute: reason too long")

	// ErrInsufficientStake rejects disputes below the minimum stake.
	ErrInsufficientStake = errors.New("dispute: stake below minimum")

	// ErrDisputeResolved rejects actions on an already resolved
	// dispute.
	ErrDisputeResolved = errors.New("dispute: already resolved")

	// ErrVotingEnded rejects votes after the voting window closed.
	ErrVotingEnded = errors.New("dispute: voting period ended")

	// ErrVotingOpen rejects resolution while the voting window is
	// still open.
	ErrVotingOpen = errors.New("dispute: voting period still open")

	// ErrInvalidVoteWeight rejects zero-weight votes.
	ErrInvalidVoteWeight = errors.New("dispute: vote weight must be positive")

	// ErrAlreadyVoted rejects a second vote from the same voter.
	ErrAlreadyVoted = errors.New("dispute: voter already voted")

	// ErrTooManyVotes rejects votes past the per-dispute cap.
	ErrTooManyVotes = errors.New("dispute: vote limit reached")

	// ErrNoVotes rejects tallying a dispute nobody voted on.
	ErrNoVotes = errors.New("dispute: no votes cast")
)
