// internal/engine/trading.go
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// Quote — расчёт сделки без исполнения. Value — полная стоимость для
// покупки и чистая выплата для продажи, комиссия уже учтена.
type Quote struct {
	MarketID    uuid.UUID      `json:"market_id"`
	Side        string         `json:"side"`
	Outcome     market.Outcome `json:"outcome"`
	Amount      uint64         `json:"amount"`
	Value       uint64         `json:"value"`
	SpotPrice   uint64         `json:"spot_price"`
	NewSupply   uint64         `json:"new_supply"`
	SlippageBps uint16         `json:"slippage_bps"`
}

// TradeRequest — заявка на исполнение сделки. Limit защищает трейдера
// от проскальзывания: для покупки это потолок стоимости, для продажи —
// пол выплаты; ноль отключает проверку.
type TradeRequest struct {
	MarketID uuid.UUID      `json:"market_id"`
	Outcome  market.Outcome `json:"outcome"`
	Amount   uint64         `json:"amount"`
	Trader   string         `json:"trader"`
	Limit    uint64         `json:"limit"`
}

// TradeResult — исполненная сделка.
type TradeResult struct {
	MarketID    uuid.UUID      `json:"market_id"`
	Side        string         `json:"side"`
	Outcome     market.Outcome `json:"outcome"`
	Amount      uint64         `json:"amount"`
	Value       uint64         `json:"value"`
	NewSupply   uint64         `json:"new_supply"`
	SpotPrice   uint64         `json:"spot_price"`
	SlippageBps uint16         `json:"slippage_bps"`
	ExecutedAt  time.Time      `json:"executed_at"`
}

// QuoteBuy считает стоимость покупки по текущему предложению. Котировка
// не требует активного рынка: цена видна и до открытия торгов.
func (s *Service) QuoteBuy(ctx context.Context, marketID uuid.UUID, outcome market.Outcome, amount uint64) (*Quote, error) {
	return s.quote(ctx, marketID, outcome, amount, true)
}

// QuoteSell считает выплату за продажу по текущему предложению.
func (s *Service) QuoteSell(ctx context.Context, marketID uuid.UUID, outcome market.Outcome, amount uint64) (*Quote, error) {
	return s.quote(ctx, marketID, outcome, amount, false)
}

func (s *Service) quote(ctx context.Context, marketID uuid.UUID, outcome market.Outcome, amount uint64, isBuy bool) (*Quote, error) {
	start := time.Now()
	side := "sell"
	if isBuy {
		side = "buy"
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordQuote(side, time.Since(start))
		}
	}()

	m, _, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	token, err := m.Outcome(outcome)
	if err != nil {
		return nil, err
	}

	var value, newSupply uint64
	if isBuy {
		value, err = m.Params.BuyQuote(token.Supply, amount)
		newSupply = token.Supply + amount
	} else {
		value, err = m.Params.SellQuote(token.Supply, amount)
		newSupply = token.Supply - amount
	}
	if err != nil {
		return nil, err
	}

	slippage, err := m.Params.Slippage(token.Supply, amount, isBuy)
	if err != nil {
		return nil, err
	}
	spot, err := m.Params.PriceAt(token.Supply)
	if err != nil {
		return nil, err
	}

	return &Quote{
		MarketID:    m.ID,
		Side:        side,
		Outcome:     outcome,
		Amount:      amount,
		Value:       value,
		SpotPrice:   spot,
		NewSupply:   newSupply,
		SlippageBps: slippage,
	}, nil
}

// ExecuteBuy исполняет покупку: цена фиксируется под блокировкой рынка,
// предложение и объём растут, стоимость зачисляется в хранилище рынка.
func (s *Service) ExecuteBuy(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	return s.executeTrade(ctx, req, true)
}

// ExecuteSell исполняет продажу: предложение сгорает, выплата списывается
// из хранилища рынка.
func (s *Service) ExecuteSell(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	return s.executeTrade(ctx, req, false)
}

func (s *Service) executeTrade(ctx context.Context, req TradeRequest, isBuy bool) (result *TradeResult, err error) {
	start := time.Now()
	side := "sell"
	if isBuy {
		side = "buy"
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordTrade(side, time.Since(start), err == nil)
		}
	}()

	unlock := s.lockMarket(req.MarketID)
	defer unlock()

	m, vault, err := s.loadMarket(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}
	if err = m.CanTrade(); err != nil {
		return nil, err
	}
	token, err := m.Outcome(req.Outcome)
	if err != nil {
		return nil, err
	}

	var value uint64
	if isBuy {
		value, err = m.Params.BuyQuote(token.Supply, req.Amount)
	} else {
		value, err = m.Params.SellQuote(token.Supply, req.Amount)
	}
	if err != nil {
		return nil, err
	}

	// Лимит трейдера: покупка не дороже, продажа не дешевле.
	if req.Limit > 0 {
		if isBuy && value > req.Limit {
			return nil, fmt.Errorf("%w: cost %d above limit %d", ErrSlippageExceeded, value, req.Limit)
		}
		if !isBuy && value < req.Limit {
			return nil, fmt.Errorf("%w: payout %d below limit %d", ErrSlippageExceeded, value, req.Limit)
		}
	}

	slippage, err := m.Params.Slippage(token.Supply, req.Amount, isBuy)
	if err != nil {
		return nil, err
	}

	var newVault uint64
	if isBuy {
		if err = m.ApplyBuy(req.Outcome, req.Amount, value); err != nil {
			return nil, err
		}
		newVault, err = curve.CheckedAdd(vault, value)
	} else {
		if err = m.ApplySell(req.Outcome, req.Amount, value); err != nil {
			return nil, err
		}
		// Покупки заносят полную стоимость с комиссией, продажи
		// забирают выплату уже без неё, так что хранилище покрывает
		// любую последовательность сделок. Проверка всё равно стоит.
		newVault, err = curve.CheckedSub(vault, value)
	}
	if err != nil {
		return nil, err
	}

	if err = s.store.UpdateMarket(ctx, models.FromMarket(m, newVault)); err != nil {
		return nil, fmt.Errorf("failed to persist trade: %w", err)
	}

	executedAt := time.Now()
	trade := &models.TradeRecord{
		MarketID:    m.ID,
		Trader:      req.Trader,
		Side:        side,
		Outcome:     int16(req.Outcome),
		Amount:      req.Amount,
		Value:       value,
		NewSupply:   token.Supply,
		SlippageBps: slippage,
		ExecutedAt:  executedAt,
	}
	if err := s.store.SaveTrade(ctx, trade); err != nil {
		// Сделка уже применена к рынку; потеря строки журнала не
		// откатывает её.
		s.logger.Error("Failed to journal trade",
			zap.String("market_id", m.ID.String()),
			zap.Error(err))
	}

	spot, spotErr := m.Params.PriceAt(token.Supply)
	if spotErr != nil {
		spot = 0
	}

	s.logger.Info("💱 Trade executed",
		zap.String("market_id", m.ID.String()),
		zap.String("side", side),
		zap.String("outcome", req.Outcome.String()),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("value", value),
		zap.Uint16("slippage_bps", slippage))

	s.publish(events.TradeExecutedEvent{
		BaseEvent:   events.NewBase(events.TradeExecuted),
		MarketID:    m.ID,
		Trader:      req.Trader,
		Outcome:     uint8(req.Outcome),
		Side:        side,
		Amount:      req.Amount,
		Value:       value,
		NewSupply:   token.Supply,
		SlippageBps: slippage,
	})
	s.refreshMarketState(ctx, m)

	return &TradeResult{
		MarketID:    m.ID,
		Side:        side,
		Outcome:     req.Outcome,
		Amount:      req.Amount,
		Value:       value,
		NewSupply:   token.Supply,
		SpotPrice:   spot,
		SlippageBps: slippage,
		ExecutedAt:  executedAt,
	}, nil
}
