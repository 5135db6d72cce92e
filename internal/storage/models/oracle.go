// internal/storage/models/oracle.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
	"github.com/rovshanmuradov/prediction-pump/internal/settlement"
)

type OracleRecord struct {
	BaseModel
	DataID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	MarketID        uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID      string    `gorm:"index;not null;type:varchar(64)"`
	WinningOutcome  int16     `gorm:"not null"`
	ConfidenceScore uint16    `gorm:"not null"`
	SubmittedAt     time.Time `gorm:"not null"`
	DataHash        []byte    `gorm:"type:bytea;not null"`
	Disputed        bool      `gorm:"index;not null;default:false"`
}

func FromOracleData(d *oracle.Data) *OracleRecord {
	hash := make([]byte, len(d.DataHash))
	copy(hash, d.DataHash[:])
	return &OracleRecord{
		DataID:          d.ID,
		MarketID:        d.MarketID,
		ProviderID:      d.ProviderID,
		WinningOutcome:  int16(d.WinningOutcome),
		ConfidenceScore: d.ConfidenceScore,
		SubmittedAt:     d.Timestamp,
		DataHash:        hash,
		Disputed:        d.Disputed,
	}
}

func (r *OracleRecord) ToOracleData() *oracle.Data {
	d := &oracle.Data{
		ID:              r.DataID,
		MarketID:        r.MarketID,
		ProviderID:      r.ProviderID,
		WinningOutcome:  market.Outcome(r.WinningOutcome),
		ConfidenceScore: r.ConfidenceScore,
		Timestamp:       r.SubmittedAt,
		Disputed:        r.Disputed,
	}
	copy(d.DataHash[:], r.DataHash)
	return d
}

// DisputeRecord keeps the votes as a JSON column: the ballots are only
// ever read back as one block at tally time, never filtered in SQL.
type DisputeRecord struct {
	BaseModel
	DisputeID    uuid.UUID         `gorm:"type:uuid;uniqueIndex;not null"`
	MarketID     uuid.UUID         `gorm:"type:uuid;index;not null"`
	OracleDataID uuid.UUID         `gorm:"type:uuid;index;not null"`
	Disputer     string            `gorm:"not null;type:varchar(44)"`
	Reason       string            `gorm:"not null;type:varchar(200)"`
	Stake        uint64            `gorm:"not null"`
	SubmittedAt  time.Time         `gorm:"not null"`
	VotingEndsAt time.Time         `gorm:"index;not null"`
	Votes        []settlement.Vote `gorm:"serializer:json;type:jsonb"`
	Resolved     bool              `gorm:"index;not null;default:false"`

	ResolutionUpheld  bool
	ResolutionOutcome int16
	ResolutionTotal   uint64
	ResolutionWinning uint64
	ResolvedAt        *time.Time
}

func FromDispute(d *settlement.Dispute) *DisputeRecord {
	rec := &DisputeRecord{
		DisputeID:    d.ID,
		MarketID:     d.MarketID,
		OracleDataID: d.OracleDataID,
		Disputer:     d.Disputer,
		Reason:       d.Reason,
		Stake:        d.Stake,
		SubmittedAt:  d.SubmittedAt,
		VotingEndsAt: d.VotingEndsAt,
		Votes:        d.Votes,
		Resolved:     d.Resolved,
	}
	if d.Resolution != nil {
		rec.ResolutionUpheld = d.Resolution.Upheld
		rec.ResolutionOutcome = int16(d.Resolution.Outcome)
		rec.ResolutionTotal = d.Resolution.TotalVotes
		rec.ResolutionWinning = d.Resolution.WinningVotes
		at := d.Resolution.ResolvedAt
		rec.ResolvedAt = &at
	}
	return rec
}

func (r *DisputeRecord) ToDispute() *settlement.Dispute {
	d := &settlement.Dispute{
		ID:           r.DisputeID,
		MarketID:     r.MarketID,
		OracleDataID: r.OracleDataID,
		Disputer:     r.Disputer,
		Reason:       r.Reason,
		Stake:        r.Stake,
		SubmittedAt:  r.SubmittedAt,
		VotingEndsAt: r.VotingEndsAt,
		Votes:        r.Votes,
		Resolved:     r.Resolved,
	}
	if r.Resolved && r.ResolvedAt != nil {
		d.Resolution = &settlement.Resolution{
			Upheld:       r.ResolutionUpheld,
			Outcome:      market.Outcome(r.ResolutionOutcome),
			TotalVotes:   r.ResolutionTotal,
			WinningVotes: r.ResolutionWinning,
			ResolvedAt:   *r.ResolvedAt,
		}
	}
	return d
}
