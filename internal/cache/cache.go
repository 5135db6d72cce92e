// internal/cache/cache.go

// Package cache declares the read-side cache contracts the engine
// consumes. Implementations live in subpackages (internal/cache/redis);
// the engine only sees these interfaces, so a deployment without a
// cache just wires nil and every read falls through to storage.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/market"
)

// ErrNotFound is returned when the cache has no entry for a key.
var ErrNotFound = errors.New("cache: not found")

// State is the cached pricing snapshot of one market side.
type State struct {
	Price     uint64
	Supply    uint64
	MarketCap uint64
	UpdatedAt time.Time
}

// PriceCache keeps hot pricing state per market side so list views and
// the websocket feed do not hit storage or recompute the curve.
type PriceCache interface {
	SetState(ctx context.Context, marketID uuid.UUID, side market.Outcome, st State) error
	GetState(ctx context.Context, marketID uuid.UUID, side market.Outcome) (State, error)
	GetStates(ctx context.Context, marketIDs []uuid.UUID, side market.Outcome) (map[uuid.UUID]State, error)
	Invalidate(ctx context.Context, marketID uuid.UUID) error
}
