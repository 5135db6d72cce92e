// internal/oracle/data.go
package oracle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/market"
)

// Data is one settlement readout submitted by a provider for a market.
// The hash commits to the market, the provider and the reported values;
// the timestamp is bookkeeping and stays outside the hash so two
// identical readouts verify identically.
type Data struct {
	ID              uuid.UUID      `json:"id"`
	MarketID        uuid.UUID      `json:"market_id"`
	ProviderID      string         `json:"provider_id"`
	WinningOutcome  market.Outcome `json:"winning_outcome"`
	ConfidenceScore uint16         `json:"confidence_score"`
	Timestamp       time.Time      `json:"timestamp"`
	DataHash        [32]byte       `json:"data_hash"`
	Disputed        bool           `json:"disputed"`
}

// NewData builds a readout and seals it with its integrity hash.
func NewData(marketID uuid.UUID, providerID string, outcome market.Outcome, confidence uint16) (*Data, error) {
	if confidence > MaxScore {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidConfidence, confidence, MaxScore)
	}
	d := &Data{
		ID:              uuid.New(),
		MarketID:        marketID,
		ProviderID:      providerID,
		WinningOutcome:  outcome,
		ConfidenceScore: confidence,
		Timestamp:       time.Now().UTC(),
	}
	d.DataHash = d.computeHash()
	return d, nil
}

// computeHash digests market, provider, outcome and confidence in that
// order, with the numeric fields little-endian.
func (d *Data) computeHash() [32]byte {
	h := sha256.New()
	h.Write(d.MarketID[:])
	h.Write([]byte(d.ProviderID))
	h.Write([]byte{byte(d.WinningOutcome)})

	var conf [2]byte
	binary.LittleEndian.PutUint16(conf[:], d.ConfidenceScore)
	h.Write(conf[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyIntegrity recomputes the hash from the stored fields and
// compares it to the sealed one. A mismatch means the record was
// tampered with after submission.
func (d *Data) VerifyIntegrity() bool {
	return d.computeHash() == d.DataHash
}

// MarkDisputed flags the readout as contested. Each readout can be
// disputed at most once; resolution clears or replaces it.
func (d *Data) MarkDisputed() error {
	if d.Disputed {
		return ErrAlreadyDisputed
	}
	d.Disputed = true
	return nil
}

// ClearDispute lifts the dispute flag after a vote upheld the readout.
func (d *Data) ClearDispute() {
	d.Disputed = false
}

// Override replaces the reported outcome with the community decision,
// lifts the dispute flag and reseals the integrity hash so the record
// still verifies.
func (d *Data) Override(outcome market.Outcome) {
	d.WinningOutcome = outcome
	d.Disputed = false
	d.DataHash = d.computeHash()
}
