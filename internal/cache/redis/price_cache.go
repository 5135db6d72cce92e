// internal/cache/redis/price_cache.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rovshanmuradov/prediction-pump/internal/cache"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
)

// stateTTL bounds how stale a cached snapshot can get. Every trade
// refreshes the entry, so expiry only ever fires on idle markets.
const stateTTL = 5 * time.Minute

// PriceCache implements cache.PriceCache using Redis hashes. Each market
// side is a hash at key "market:{marketID}:outcome:{index}" with fields
// "price", "supply", "cap" and "ts" (Unix nanosecond timestamp).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func stateKey(marketID uuid.UUID, side market.Outcome) string {
	return fmt.Sprintf("market:%s:outcome:%d", marketID, side)
}

// SetState stores the pricing snapshot for one market side with a
// 5-minute TTL.
func (pc *PriceCache) SetState(ctx context.Context, marketID uuid.UUID, side market.Outcome, st cache.State) error {
	key := stateKey(marketID, side)
	fields := map[string]interface{}{
		"price":  strconv.FormatUint(st.Price, 10),
		"supply": strconv.FormatUint(st.Supply, 10),
		"cap":    strconv.FormatUint(st.MarketCap, 10),
		"ts":     strconv.FormatInt(st.UpdatedAt.UnixNano(), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, stateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set state %s: %w", key, err)
	}
	return nil
}

// GetState retrieves the snapshot for one market side. It returns
// cache.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetState(ctx context.Context, marketID uuid.UUID, side market.Outcome) (cache.State, error) {
	key := stateKey(marketID, side)
	vals, err := pc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return cache.State{}, fmt.Errorf("redis: get state %s: %w", key, err)
	}
	if len(vals) == 0 {
		return cache.State{}, cache.ErrNotFound
	}
	return parseState(vals)
}

// GetStates retrieves one side's snapshot for multiple markets using a
// pipeline. Markets without cached state are silently omitted.
func (pc *PriceCache) GetStates(ctx context.Context, marketIDs []uuid.UUID, side market.Outcome) (map[uuid.UUID]cache.State, error) {
	if len(marketIDs) == 0 {
		return map[uuid.UUID]cache.State{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[uuid.UUID]*redis.MapStringStringCmd, len(marketIDs))
	for _, id := range marketIDs {
		cmds[id] = pipe.HGetAll(ctx, stateKey(id, side))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get states pipeline: %w", err)
	}

	result := make(map[uuid.UUID]cache.State, len(marketIDs))
	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		st, err := parseState(vals)
		if err != nil {
			continue
		}
		result[id] = st
	}

	return result, nil
}

// Invalidate drops the cached snapshots for both sides of a market.
func (pc *PriceCache) Invalidate(ctx context.Context, marketID uuid.UUID) error {
	keys := []string{
		stateKey(marketID, market.OutcomeYes),
		stateKey(marketID, market.OutcomeNo),
	}
	if err := pc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate %s: %w", marketID, err)
	}
	return nil
}

func parseState(vals map[string]string) (cache.State, error) {
	var st cache.State

	price, err := strconv.ParseUint(vals["price"], 10, 64)
	if err != nil {
		return cache.State{}, fmt.Errorf("redis: parse price: %w", err)
	}
	supply, err := strconv.ParseUint(vals["supply"], 10, 64)
	if err != nil {
		return cache.State{}, fmt.Errorf("redis: parse supply: %w", err)
	}
	capVal, err := strconv.ParseUint(vals["cap"], 10, 64)
	if err != nil {
		return cache.State{}, fmt.Errorf("redis: parse cap: %w", err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return cache.State{}, fmt.Errorf("redis: parse ts: %w", err)
	}

	st.Price = price
	st.Supply = supply
	st.MarketCap = capVal
	st.UpdatedAt = time.Unix(0, tsNano)
	return st, nil
}

// Compile-time interface check.
var _ cache.PriceCache = (*PriceCache)(nil)
