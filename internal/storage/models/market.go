// internal/storage/models/market.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
)

// MarketRecord is the flattened row behind one market. The nested
// domain structs unfold into columns so the usual filters (open
// markets, resolution window) stay plain SQL.
type MarketRecord struct {
	BaseModel
	MarketID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Creator        string    `gorm:"index;not null;type:varchar(44)"`
	Description    string    `gorm:"not null;type:varchar(100)"`
	ResolutionDate time.Time `gorm:"index;not null"`
	OracleSource   string    `gorm:"not null;type:varchar(64)"`

	YesMint   string `gorm:"not null;type:varchar(44)"`
	YesSupply uint64 `gorm:"not null;default:0"`
	NoMint    string `gorm:"not null;type:varchar(44)"`
	NoSupply  uint64 `gorm:"not null;default:0"`

	InitialPrice   uint64 `gorm:"not null"`
	CurveSteepness uint64 `gorm:"not null"`
	MaxSupply      uint64 `gorm:"not null"`
	FeeRateBps     uint16 `gorm:"not null"`

	TotalVolume  uint64 `gorm:"not null;default:0"`
	VaultBalance uint64 `gorm:"not null;default:0"`

	Active         bool `gorm:"index;not null;default:false"`
	Settled        bool `gorm:"index;not null;default:false"`
	WinningOutcome *int16
	SettledAt      *time.Time

	SettlementPayout uint64 `gorm:"default:0"`
	SettlementSupply uint64 `gorm:"default:0"`
	OracleDataHash   []byte `gorm:"type:bytea"`
	MarketCreatedAt  time.Time
}

// FromMarket flattens a domain market plus the engine's tracked vault
// balance into a row.
func FromMarket(m *market.Market, vaultBalance uint64) *MarketRecord {
	rec := &MarketRecord{
		MarketID:        m.ID,
		Creator:         m.Creator,
		Description:     m.Description,
		ResolutionDate:  m.ResolutionDate,
		OracleSource:    m.OracleSource,
		YesMint:         m.Outcomes[market.OutcomeYes].Mint,
		YesSupply:       m.Outcomes[market.OutcomeYes].Supply,
		NoMint:          m.Outcomes[market.OutcomeNo].Mint,
		NoSupply:        m.Outcomes[market.OutcomeNo].Supply,
		InitialPrice:    m.Params.InitialPrice,
		CurveSteepness:  m.Params.CurveSteepness,
		MaxSupply:       m.Params.MaxSupply,
		FeeRateBps:      m.Params.FeeRateBps,
		TotalVolume:     m.TotalVolume,
		VaultBalance:    vaultBalance,
		Active:          m.Status.Active,
		Settled:         m.Status.Settled,
		MarketCreatedAt: m.CreatedAt,
	}
	if m.Status.WinningOutcome != nil {
		w := int16(*m.Status.WinningOutcome)
		rec.WinningOutcome = &w
	}
	if m.Status.SettledAt != nil {
		ts := *m.Status.SettledAt
		rec.SettledAt = &ts
	}
	if m.Settlement != nil {
		rec.SettlementPayout = m.Settlement.TotalPayout
		rec.SettlementSupply = m.Settlement.WinningSupply
		hash := make([]byte, len(m.Settlement.OracleDataHash))
		copy(hash, m.Settlement.OracleDataHash[:])
		rec.OracleDataHash = hash
	}
	return rec
}

// ToMarket rebuilds the domain market and the vault balance from a row.
func (r *MarketRecord) ToMarket() (*market.Market, uint64) {
	m := &market.Market{
		ID:             r.MarketID,
		Creator:        r.Creator,
		Description:    r.Description,
		ResolutionDate: r.ResolutionDate,
		OracleSource:   r.OracleSource,
		Outcomes: [2]market.OutcomeToken{
			{Side: market.OutcomeYes, Mint: r.YesMint, Supply: r.YesSupply},
			{Side: market.OutcomeNo, Mint: r.NoMint, Supply: r.NoSupply},
		},
		Params: curve.Params{
			InitialPrice:   r.InitialPrice,
			CurveSteepness: r.CurveSteepness,
			MaxSupply:      r.MaxSupply,
			FeeRateBps:     r.FeeRateBps,
		},
		TotalVolume: r.TotalVolume,
		Status: market.Status{
			Active:  r.Active,
			Settled: r.Settled,
		},
		CreatedAt: r.MarketCreatedAt,
	}
	if r.WinningOutcome != nil {
		w := market.Outcome(*r.WinningOutcome)
		m.Status.WinningOutcome = &w
	}
	if r.SettledAt != nil {
		ts := *r.SettledAt
		m.Status.SettledAt = &ts
	}
	if r.Settled && r.WinningOutcome != nil {
		sd := &market.SettlementData{
			WinningOutcome: market.Outcome(*r.WinningOutcome),
			TotalPayout:    r.SettlementPayout,
			WinningSupply:  r.SettlementSupply,
		}
		if r.SettledAt != nil {
			sd.SettledAt = *r.SettledAt
		}
		copy(sd.OracleDataHash[:], r.OracleDataHash)
		m.Settlement = sd
	}
	return m, r.VaultBalance
}
