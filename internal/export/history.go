// internal/export/history.go
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/logger"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// TradeHistory consumes executed trades from the event bus and appends
// them to a CSV journal on disk. It also keeps a bounded in-memory tail
// for quick inspection without touching the database.
type TradeHistory struct {
	mu        sync.RWMutex
	csvWriter *logger.SafeCSVWriter
	trades    []models.TradeRecord
	maxTrades int
	logger    *zap.Logger
	sub       events.Subscription
	closed    bool

	// Statistics
	totalTrades    int
	buyCount       int
	sellCount      int
	buyVolume      uint64
	sellVolume     uint64
	slippageSum    uint64
	maxSlippageBps uint16
}

// NewTradeHistory creates a new trade history manager
func NewTradeHistory(logDir string, maxTrades int, zapLogger *zap.Logger) (*TradeHistory, error) {
	// Create trades directory
	tradesDir := filepath.Join(logDir, "trades")

	// Create CSV file with timestamp
	filename := fmt.Sprintf("trades_%s.csv", time.Now().Format("20060102_150405"))
	csvPath := filepath.Join(tradesDir, filename)

	// Create CSV writer with 30 second flush interval
	csvWriter, err := logger.NewSafeCSVWriter(csvPath, CSVHeader(), 30*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	th := &TradeHistory{
		csvWriter: csvWriter,
		trades:    make([]models.TradeRecord, 0, maxTrades),
		maxTrades: maxTrades,
		logger:    zapLogger,
	}

	zapLogger.Info("Trade history initialized",
		zap.String("csv_file", csvPath),
		zap.Int("max_memory_trades", maxTrades))

	return th, nil
}

// Attach subscribes the history to executed trades on the bus. Call once
// after construction.
func (th *TradeHistory) Attach(bus *events.Bus) {
	th.mu.Lock()
	defer th.mu.Unlock()

	th.sub = bus.SubscribeFunc(events.TradeExecuted, th.handleEvent)
	th.logger.Info("Trade history attached to event bus")
}

func (th *TradeHistory) handleEvent(_ context.Context, event events.Event) error {
	evt, ok := event.(events.TradeExecutedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload for %s: %T", events.TradeExecuted, event)
	}

	return th.LogTrade(models.TradeRecord{
		MarketID:    evt.MarketID,
		Trader:      evt.Trader,
		Side:        evt.Side,
		Outcome:     int16(evt.Outcome),
		Amount:      evt.Amount,
		Value:       evt.Value,
		NewSupply:   evt.NewSupply,
		SlippageBps: evt.SlippageBps,
		ExecutedAt:  evt.Timestamp(),
	})
}

// LogTrade logs a new trade
func (th *TradeHistory) LogTrade(trade models.TradeRecord) error {
	th.mu.Lock()
	defer th.mu.Unlock()

	if th.closed {
		// Гонка на остановке: запись уже в БД, журнал просто пропускает.
		return nil
	}

	// Ensure timestamp
	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = time.Now()
	}

	// Write to CSV
	if err := th.csvWriter.WriteRecord(CSVRow(&trade)); err != nil {
		th.logger.Error("Failed to write trade to CSV",
			zap.String("market_id", trade.MarketID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to write trade: %w", err)
	}

	// Add to memory (circular buffer)
	if len(th.trades) >= th.maxTrades {
		// Remove oldest trade
		th.trades = th.trades[1:]
	}
	th.trades = append(th.trades, trade)

	// Update statistics
	th.totalTrades++
	th.slippageSum += uint64(trade.SlippageBps)
	if trade.SlippageBps > th.maxSlippageBps {
		th.maxSlippageBps = trade.SlippageBps
	}
	switch trade.Side {
	case "buy":
		th.buyCount++
		th.buyVolume += trade.Value
	case "sell":
		th.sellCount++
		th.sellVolume += trade.Value
	}

	th.logger.Info("Trade logged",
		zap.String("market_id", trade.MarketID.String()),
		zap.String("side", trade.Side),
		zap.String("outcome", market.Outcome(trade.Outcome).String()),
		zap.String("value_sol", lamportsToSOL(trade.Value)))

	return nil
}

// GetRecentTrades returns recent trades from memory
func (th *TradeHistory) GetRecentTrades(limit int) []models.TradeRecord {
	th.mu.RLock()
	defer th.mu.RUnlock()

	if limit <= 0 || limit > len(th.trades) {
		limit = len(th.trades)
	}

	// Return most recent trades
	start := len(th.trades) - limit

	result := make([]models.TradeRecord, limit)
	copy(result, th.trades[start:])

	return result
}

// GetTradesByMarket returns buffered trades for a specific market
func (th *TradeHistory) GetTradesByMarket(marketID uuid.UUID) []models.TradeRecord {
	th.mu.RLock()
	defer th.mu.RUnlock()

	var result []models.TradeRecord
	for _, trade := range th.trades {
		if trade.MarketID == marketID {
			result = append(result, trade)
		}
	}

	return result
}

// GetStatistics returns trading statistics
func (th *TradeHistory) GetStatistics() TradeStatistics {
	th.mu.RLock()
	defer th.mu.RUnlock()

	return th.statisticsLocked()
}

// statisticsLocked assembles the snapshot. Caller holds th.mu.
func (th *TradeHistory) statisticsLocked() TradeStatistics {
	stats := TradeStatistics{
		TotalTrades:    th.totalTrades,
		BuyCount:       th.buyCount,
		SellCount:      th.sellCount,
		BuyVolume:      th.buyVolume,
		SellVolume:     th.sellVolume,
		BuyVolumeSOL:   lamportsToSOL(th.buyVolume),
		SellVolumeSOL:  lamportsToSOL(th.sellVolume),
		MaxSlippageBps: th.maxSlippageBps,
	}

	if th.totalTrades > 0 {
		stats.AvgSlippageBps = uint16(th.slippageSum / uint64(th.totalTrades))
	}

	return stats
}

// Flush forces a write of any buffered trades
func (th *TradeHistory) Flush() error {
	return th.csvWriter.Flush()
}

// Close detaches from the bus and closes the journal, ensuring all data
// is written.
func (th *TradeHistory) Close() error {
	th.mu.Lock()
	if th.closed {
		th.mu.Unlock()
		return nil
	}
	th.closed = true
	sub := th.sub
	stats := th.statisticsLocked()
	th.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	th.logger.Info("Closing trade history",
		zap.Int("total_trades", stats.TotalTrades),
		zap.String("buy_volume_sol", stats.BuyVolumeSOL),
		zap.String("sell_volume_sol", stats.SellVolumeSOL))

	return th.csvWriter.Close()
}

// TradeStatistics holds aggregate trade statistics
type TradeStatistics struct {
	TotalTrades    int    `json:"total_trades"`
	BuyCount       int    `json:"buy_count"`
	SellCount      int    `json:"sell_count"`
	BuyVolume      uint64 `json:"buy_volume"`
	SellVolume     uint64 `json:"sell_volume"`
	BuyVolumeSOL   string `json:"buy_volume_sol"`
	SellVolumeSOL  string `json:"sell_volume_sol"`
	MaxSlippageBps uint16 `json:"max_slippage_bps"`
	AvgSlippageBps uint16 `json:"avg_slippage_bps"`
}
