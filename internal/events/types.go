// internal/events/types.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event flowing over the bus.
type EventType string

const (
	// Market lifecycle events
	MarketCreated   EventType = "market.created"
	MarketActivated EventType = "market.activated"
	MarketSettled   EventType = "market.settled"

	// Trading events
	TradeExecuted EventType = "trade.executed"
	PriceUpdated  EventType = "price.updated"

	// Settlement events
	PayoutClaimed EventType = "payout.claimed"

	// Dispute events
	DisputeOpened   EventType = "dispute.opened"
	DisputeResolved EventType = "dispute.resolved"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps a base event with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// MarketCreatedEvent is emitted when a new market passes validation.
type MarketCreatedEvent struct {
	BaseEvent
	MarketID    uuid.UUID `json:"market_id"`
	Creator     string    `json:"creator"`
	Description string    `json:"description"`
}

// MarketActivatedEvent is emitted when a market is seeded with enough
// liquidity to start trading.
type MarketActivatedEvent struct {
	BaseEvent
	MarketID  uuid.UUID `json:"market_id"`
	Liquidity uint64    `json:"liquidity"`
}

// TradeExecutedEvent is emitted after a buy or sell is applied to a
// market's supply. All amounts are raw fixed-point units.
type TradeExecutedEvent struct {
	BaseEvent
	MarketID    uuid.UUID `json:"market_id"`
	Trader      string    `json:"trader"`
	Outcome     uint8     `json:"outcome"`
	Side        string    `json:"side"` // "buy" or "sell"
	Amount      uint64    `json:"amount"`
	Value       uint64    `json:"value"` // cost for buys, payout for sells
	NewSupply   uint64    `json:"new_supply"`
	SlippageBps uint16    `json:"slippage_bps"`
}

// PriceUpdatedEvent is emitted whenever a trade moves an outcome's spot
// price.
type PriceUpdatedEvent struct {
	BaseEvent
	MarketID  uuid.UUID `json:"market_id"`
	Outcome   uint8     `json:"outcome"`
	Supply    uint64    `json:"supply"`
	SpotPrice uint64    `json:"spot_price"`
	MarketCap uint64    `json:"market_cap"`
}

// MarketSettledEvent is emitted when oracle data finalizes a market.
type MarketSettledEvent struct {
	BaseEvent
	MarketID       uuid.UUID `json:"market_id"`
	WinningOutcome uint8     `json:"winning_outcome"`
	TotalPayout    uint64    `json:"total_payout"`
}

// PayoutClaimedEvent is emitted when a winning-token holder redeems.
type PayoutClaimedEvent struct {
	BaseEvent
	MarketID uuid.UUID `json:"market_id"`
	Claimer  string    `json:"claimer"`
	Burned   uint64    `json:"burned"`
	Payout   uint64    `json:"payout"`
}

// DisputeOpenedEvent is emitted when a settlement is disputed.
type DisputeOpenedEvent struct {
	BaseEvent
	MarketID  uuid.UUID `json:"market_id"`
	DisputeID uuid.UUID `json:"dispute_id"`
	Disputer  string    `json:"disputer"`
	Stake     uint64    `json:"stake"`
}

// DisputeResolvedEvent is emitted after the voting period closes.
type DisputeResolvedEvent struct {
	BaseEvent
	MarketID  uuid.UUID `json:"market_id"`
	DisputeID uuid.UUID `json:"dispute_id"`
	Outcome   uint8     `json:"outcome"` // 255 = original upheld
	Upheld    bool      `json:"upheld"`
}
