// internal/market/outcome.go
package market

import "fmt"

// Outcome indexes one side of a binary market. The numeric values are
// stable: they appear in oracle submissions, settlement records and
// dispute votes.
type Outcome uint8

const (
	// OutcomeYes is the affirmative side.
	OutcomeYes Outcome = 0
	// OutcomeNo is the negative side.
	OutcomeNo Outcome = 1
	// OutcomeUphold is only valid inside dispute votes: keep the
	// original settlement result.
	OutcomeUphold Outcome = 255
)

// Valid reports whether the outcome indexes a tradable side.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "YES"
	case OutcomeNo:
		return "NO"
	case OutcomeUphold:
		return "UPHOLD"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// OutcomeToken tracks the outstanding supply of one side's token. Supply
// is authoritative here: the pricing engine never stores it and receives
// it on every call.
type OutcomeToken struct {
	Side   Outcome `json:"side"`
	Mint   string  `json:"mint"` // on-chain mint address
	Supply uint64  `json:"supply"`
}
