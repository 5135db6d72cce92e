// internal/settlement/dispute.go
package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
)

const (
	// MaxReasonLen bounds the dispute reason text.
	MaxReasonLen = 200

	// MinStake is the smallest stake that opens a dispute, in atomic
	// units (0.001 SOL). Skin in the game against spam disputes.
	MinStake uint64 = 1_000_000

	// VotingPeriod is how long a dispute accepts votes.
	VotingPeriod = 7 * 24 * time.Hour

	// MaxVotes caps votes per dispute.
	MaxVotes = 100
)

// Vote is one weighted ballot on a disputed outcome. Outcome 0 and 1
// vote to override the readout; OutcomeUphold (255) votes to keep it.
type Vote struct {
	Voter     string         `json:"voter"`
	Outcome   market.Outcome `json:"outcome"`
	Weight    uint64         `json:"weight"`
	Timestamp time.Time      `json:"timestamp"`
}

// Resolution is the outcome of a tallied dispute.
type Resolution struct {
	Upheld       bool           `json:"upheld"`
	Outcome      market.Outcome `json:"outcome"`
	TotalVotes   uint64         `json:"total_votes"`
	WinningVotes uint64         `json:"winning_votes"`
	ResolvedAt   time.Time      `json:"resolved_at"`
}

// Dispute challenges one oracle readout on a settled market.
type Dispute struct {
	ID           uuid.UUID   `json:"id"`
	MarketID     uuid.UUID   `json:"market_id"`
	OracleDataID uuid.UUID   `json:"oracle_data_id"`
	Disputer     string      `json:"disputer"`
	Reason       string      `json:"reason"`
	Stake        uint64      `json:"stake"`
	SubmittedAt  time.Time   `json:"submitted_at"`
	VotingEndsAt time.Time   `json:"voting_ends_at"`
	Votes        []Vote      `json:"votes"`
	Resolved     bool        `json:"resolved"`
	Resolution   *Resolution `json:"resolution,omitempty"`
}

// OpenDispute challenges the readout that settled a market. The staked
// amount is held until resolution; the readout is flagged disputed so
// it cannot settle anything else meanwhile.
func OpenDispute(m *market.Market, data *oracle.Data, disputer, reason string, stake uint64, now time.Time) (*Dispute, error) {
	if data.Disputed {
		return nil, oracle.ErrAlreadyDisputed
	}
	if !m.Status.Settled {
		return nil, market.ErrMarketNotSettled
	}
	if len(reason) > MaxReasonLen {
		return nil, fmt.Errorf("%w: %d chars, max %d", ErrReasonTooLong, len(reason), MaxReasonLen)
	}
	if stake < MinStake {
		return nil, fmt.Errorf("%w: %d < %d", ErrInsufficientStake, stake, MinStake)
	}
	if err := data.MarkDisputed(); err != nil {
		return nil, err
	}

	return &Dispute{
		ID:           uuid.New(),
		MarketID:     m.ID,
		OracleDataID: data.ID,
		Disputer:     disputer,
		Reason:       reason,
		Stake:        stake,
		SubmittedAt:  now,
		VotingEndsAt: now.Add(VotingPeriod),
	}, nil
}

// AddVote records one ballot. Each voter votes once, with positive
// weight, while the window is open.
func (d *Dispute) AddVote(voter string, outcome market.Outcome, weight uint64, now time.Time) error {
	if d.Resolved {
		return ErrDisputeResolved
	}
	if !now.Before(d.VotingEndsAt) {
		return ErrVotingEnded
	}
	if weight == 0 {
		return ErrInvalidVoteWeight
	}
	for _, v := range d.Votes {
		if v.Voter == voter {
			return fmt.Errorf("%w: %s", ErrAlreadyVoted, voter)
		}
	}
	if len(d.Votes) >= MaxVotes {
		return ErrTooManyVotes
	}

	d.Votes = append(d.Votes, Vote{
		Voter:     voter,
		Outcome:   outcome,
		Weight:    weight,
		Timestamp: now,
	})
	return nil
}

// Tally computes the weighted result without closing the dispute.
// Uphold wins every tie; between the two override outcomes, YES wins
// the tie. Ballots for unknown outcomes count toward the total but
// back nothing.
func (d *Dispute) Tally(now time.Time) (Resolution, error) {
	if len(d.Votes) == 0 {
		return Resolution{}, ErrNoVotes
	}

	var yes, no, uphold, total uint64
	for _, v := range d.Votes {
		total += v.Weight
		switch v.Outcome {
		case market.OutcomeYes:
			yes += v.Weight
		case market.OutcomeNo:
			no += v.Weight
		case market.OutcomeUphold:
			uphold += v.Weight
		}
	}

	var (
		winner  market.Outcome
		winning uint64
	)
	switch {
	case uphold >= yes && uphold >= no:
		winner, winning = market.OutcomeUphold, uphold
	case yes >= no:
		winner, winning = market.OutcomeYes, yes
	default:
		winner, winning = market.OutcomeNo, no
	}

	return Resolution{
		Upheld:       winner == market.OutcomeUphold,
		Outcome:      winner,
		TotalVotes:   total,
		WinningVotes: winning,
		ResolvedAt:   now,
	}, nil
}

// Resolve closes the dispute after the voting window and applies the
// community decision: uphold clears the dispute flag, override rewrites
// the oracle readout and the market's settlement record. An override
// re-freezes WinningSupply against the new winning side, so claims after
// the flip are priced by the holders who actually won.
func Resolve(d *Dispute, m *market.Market, data *oracle.Data, now time.Time) (Resolution, error) {
	if d.Resolved {
		return Resolution{}, ErrDisputeResolved
	}
	if now.Before(d.VotingEndsAt) {
		return Resolution{}, fmt.Errorf("%w: until %s", ErrVotingOpen, d.VotingEndsAt.Format(time.RFC3339))
	}

	res, err := d.Tally(now)
	if err != nil {
		return Resolution{}, err
	}
	d.Resolved = true
	d.Resolution = &res

	if res.Upheld {
		data.ClearDispute()
		return res, nil
	}

	data.Override(res.Outcome)
	if m.Settlement != nil {
		m.Settlement.WinningOutcome = res.Outcome
		m.Settlement.OracleDataHash = data.DataHash
		if token, tokenErr := m.Outcome(res.Outcome); tokenErr == nil {
			m.Settlement.WinningSupply = token.Supply
		}
	}
	if m.Status.WinningOutcome != nil {
		*m.Status.WinningOutcome = res.Outcome
	}
	return res, nil
}
