// internal/export/export_test.go
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

var (
	testMarketA = uuid.MustParse("aaaaaaaa-1111-4000-8000-000000000001")
	testMarketB = uuid.MustParse("bbbbbbbb-2222-4000-8000-000000000002")
)

// Helper function to generate test trades
func generateTestTrades() []*models.TradeRecord {
	now := time.Now()
	trades := []*models.TradeRecord{
		{
			MarketID:    testMarketA,
			Trader:      "walletA",
			Side:        "buy",
			Outcome:     0,
			Amount:      10_000,
			Value:       25_250_000,
			NewSupply:   10_000,
			SlippageBps: 1525,
			ExecutedAt:  now.Add(-1 * time.Hour),
		},
		{
			MarketID:    testMarketA,
			Trader:      "walletB",
			Side:        "buy",
			Outcome:     1,
			Amount:      5_000,
			Value:       6_300_000,
			NewSupply:   5_000,
			SlippageBps: 750,
			ExecutedAt:  now.Add(-45 * time.Minute),
		},
		{
			MarketID:    testMarketA,
			Trader:      "walletA",
			Side:        "sell",
			Outcome:     0,
			Amount:      4_000,
			Value:       12_988_800,
			NewSupply:   6_000,
			SlippageBps: 600,
			ExecutedAt:  now.Add(-30 * time.Minute),
		},
		{
			MarketID:    testMarketB,
			Trader:      "walletC",
			Side:        "buy",
			Outcome:     0,
			Amount:      20_000,
			Value:       101_000_000,
			NewSupply:   20_000,
			SlippageBps: 3050,
			ExecutedAt:  now.Add(-20 * time.Minute),
		},
		{
			MarketID:    testMarketB,
			Trader:      "walletA",
			Side:        "buy",
			Outcome:     1,
			Amount:      1_000,
			Value:       1_002_500,
			NewSupply:   1_000,
			SlippageBps: 150,
			ExecutedAt:  now.Add(-10 * time.Minute),
		},
	}

	return trades
}

func readCSVRows(t *testing.T, path string) [][]string {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV file: %v", err)
	}
	return rows
}

func TestTradeExportCSV(t *testing.T) {
	logger := zap.NewNop()
	exporter := NewTradeExporter(logger)
	tempDir := t.TempDir()

	// Create test trades
	trades := generateTestTrades()

	// Export to CSV
	options := ExportOptions{
		Format:    FormatCSV,
		OutputDir: tempDir,
	}

	outputPath, err := exporter.ExportTrades(trades, options)
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	rows := readCSVRows(t, outputPath)

	// Header plus one row per trade
	if len(rows) != len(trades)+1 {
		t.Errorf("Expected %d rows, got %d", len(trades)+1, len(rows))
	}

	if rows[0][0] != "timestamp" || rows[0][4] != "outcome" {
		t.Errorf("Unexpected header row: %v", rows[0])
	}

	// Rows come back sorted by execution time
	if rows[1][2] != "walletA" || rows[1][3] != "buy" || rows[1][4] != "YES" {
		t.Errorf("Unexpected first data row: %v", rows[1])
	}
	if rows[1][7] != "0.02525" {
		t.Errorf("Expected value_sol 0.02525, got %s", rows[1][7])
	}

	t.Logf("Exported CSV to: %s (%d rows)", outputPath, len(rows))
}

func TestTradeExportJSON(t *testing.T) {
	logger := zap.NewNop()
	exporter := NewTradeExporter(logger)
	tempDir := t.TempDir()

	// Create test trades
	trades := generateTestTrades()

	// Export to JSON
	options := ExportOptions{
		Format:    FormatJSON,
		OutputDir: tempDir,
	}

	outputPath, err := exporter.ExportTrades(trades, options)
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var payload struct {
		TradeCount int             `json:"trade_count"`
		Trades     []exportedTrade `json:"trades"`
		Summary    ExportSummary   `json:"summary"`
	}
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("Failed to unmarshal export: %v", err)
	}

	if payload.TradeCount != len(trades) {
		t.Errorf("Expected trade_count %d, got %d", len(trades), payload.TradeCount)
	}
	if payload.Trades[0].Outcome != "YES" {
		t.Errorf("Expected first outcome YES, got %s", payload.Trades[0].Outcome)
	}
	if payload.Summary.UniqueMarkets != 2 {
		t.Errorf("Expected 2 unique markets, got %d", payload.Summary.UniqueMarkets)
	}
}

func TestTradeExportFilters(t *testing.T) {
	logger := zap.NewNop()
	exporter := NewTradeExporter(logger)
	tempDir := t.TempDir()

	// Create test trades
	trades := generateTestTrades()

	// Test market filter
	options := ExportOptions{
		Format:       FormatCSV,
		MarketFilter: testMarketB,
		OutputDir:    tempDir,
	}

	outputPath, err := exporter.ExportTrades(trades, options)
	if err != nil {
		t.Fatalf("Failed to export with market filter: %v", err)
	}
	if rows := readCSVRows(t, outputPath); len(rows) != 3 {
		t.Errorf("Market filter: expected 2 trades, got %d", len(rows)-1)
	}

	// Test side filter
	options = ExportOptions{
		Format:     FormatCSV,
		SideFilter: "sell",
		OutputDir:  tempDir,
	}

	outputPath, err = exporter.ExportTrades(trades, options)
	if err != nil {
		t.Fatalf("Failed to export with side filter: %v", err)
	}
	if rows := readCSVRows(t, outputPath); len(rows) != 2 {
		t.Errorf("Side filter: expected 1 trade, got %d", len(rows)-1)
	}

	// Test trader filter
	options = ExportOptions{
		Format:       FormatCSV,
		TraderFilter: "walletA",
		OutputDir:    tempDir,
	}

	outputPath, err = exporter.ExportTrades(trades, options)
	if err != nil {
		t.Fatalf("Failed to export with trader filter: %v", err)
	}
	if rows := readCSVRows(t, outputPath); len(rows) != 4 {
		t.Errorf("Trader filter: expected 3 trades, got %d", len(rows)-1)
	}

	// Test time filter
	options = ExportOptions{
		Format:    FormatCSV,
		StartTime: time.Now().Add(-35 * time.Minute),
		OutputDir: tempDir,
	}

	outputPath, err = exporter.ExportTrades(trades, options)
	if err != nil {
		t.Fatalf("Failed to export with time filter: %v", err)
	}
	if rows := readCSVRows(t, outputPath); len(rows) != 4 {
		t.Errorf("Time filter: expected 3 trades, got %d", len(rows)-1)
	}

	// Nothing matches
	options = ExportOptions{
		Format:       FormatCSV,
		SideFilter:   "sell",
		MarketFilter: testMarketB,
		OutputDir:    tempDir,
	}
	if _, err := exporter.ExportTrades(trades, options); err == nil {
		t.Error("Expected error when no trades match filters")
	}
}

func TestDailyReportExport(t *testing.T) {
	logger := zap.NewNop()
	exporter := NewTradeExporter(logger)
	tempDir := t.TempDir()

	// Create test trades
	trades := generateTestTrades()

	// Export daily report
	outputPath, err := exporter.ExportDailyReport(trades, time.Now(), tempDir)
	if err != nil {
		t.Fatalf("Failed to export daily report: %v", err)
	}

	if outputPath == "" {
		t.Log("No trades for today, which is expected near midnight")
		return
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read daily report: %v", err)
	}

	var report DailyReport
	if err := json.Unmarshal(content, &report); err != nil {
		t.Fatalf("Failed to unmarshal daily report: %v", err)
	}
	if report.TradeCount == 0 {
		t.Error("Daily report should contain trades")
	}
	if len(report.HourlyBreakdown) == 0 {
		t.Error("Daily report should contain an hourly breakdown")
	}

	t.Logf("Daily report exported to: %s", outputPath)
}

func TestExportSummaryCalculation(t *testing.T) {
	logger := zap.NewNop()
	exporter := NewTradeExporter(logger)

	now := time.Now()
	trades := []*models.TradeRecord{
		{MarketID: testMarketA, Trader: "walletA", Side: "buy", Value: 5_000_000_000, SlippageBps: 100, ExecutedAt: now.Add(-2 * time.Hour)},
		{MarketID: testMarketA, Trader: "walletB", Side: "sell", Value: 5_000_000_000, SlippageBps: 200, ExecutedAt: now.Add(-1 * time.Hour)},
		{MarketID: testMarketB, Trader: "walletA", Side: "buy", Value: 3_000_000_000, SlippageBps: 300, ExecutedAt: now.Add(-30 * time.Minute)},
		{MarketID: testMarketB, Trader: "walletA", Side: "sell", Value: 3_000_000_000, SlippageBps: 400, ExecutedAt: now},
	}

	summary := exporter.calculateSummary(trades)

	if summary.TotalTrades != 4 {
		t.Errorf("Expected 4 total trades, got %d", summary.TotalTrades)
	}

	if summary.BuyCount != 2 || summary.SellCount != 2 {
		t.Errorf("Expected 2 buys and 2 sells, got %d buys and %d sells",
			summary.BuyCount, summary.SellCount)
	}

	if summary.BuyVolume != 8_000_000_000 || summary.SellVolume != 8_000_000_000 {
		t.Errorf("Expected volumes 8000000000/8000000000, got %d/%d",
			summary.BuyVolume, summary.SellVolume)
	}

	if summary.BuyVolumeSOL != "8" {
		t.Errorf("Expected buy volume 8 SOL, got %s", summary.BuyVolumeSOL)
	}

	if summary.UniqueMarkets != 2 || summary.UniqueTraders != 2 {
		t.Errorf("Expected 2 markets and 2 traders, got %d and %d",
			summary.UniqueMarkets, summary.UniqueTraders)
	}

	if summary.MaxSlippageBps != 400 {
		t.Errorf("Expected max slippage 400 bps, got %d", summary.MaxSlippageBps)
	}

	if summary.AvgSlippageBps != 250 {
		t.Errorf("Expected avg slippage 250 bps, got %d", summary.AvgSlippageBps)
	}

	t.Logf("Export summary: %+v", summary)
}

func TestFilenameGeneration(t *testing.T) {
	logger := zap.NewNop()
	exporter := NewTradeExporter(logger)

	tests := []struct {
		options  ExportOptions
		expected string
	}{
		{
			options: ExportOptions{
				Format: FormatCSV,
			},
			expected: "trades_all",
		},
		{
			options: ExportOptions{
				Format:     FormatJSON,
				SideFilter: "buy",
			},
			expected: "trades_buy",
		},
		{
			options: ExportOptions{
				Format:       FormatCSV,
				SideFilter:   "sell",
				MarketFilter: testMarketA,
			},
			expected: "trades_sell_aaaaaaaa",
		},
	}

	for _, tt := range tests {
		filename := exporter.generateFilename(tt.options)
		if !strings.HasPrefix(filename, tt.expected) {
			t.Errorf("Expected filename to start with %s, got %s", tt.expected, filename)
		}

		expectedExt := "." + string(tt.options.Format)
		if !strings.HasSuffix(filename, expectedExt) {
			t.Errorf("Expected filename to end with %s, got %s", expectedExt, filename)
		}
	}
}

func TestTradeHistoryLogging(t *testing.T) {
	tempDir := t.TempDir()
	logger := zap.NewNop()

	th, err := NewTradeHistory(tempDir, 3, logger)
	if err != nil {
		t.Fatalf("Failed to create trade history: %v", err)
	}

	// Log more trades than the memory buffer holds
	for _, trade := range generateTestTrades() {
		if err := th.LogTrade(*trade); err != nil {
			t.Fatalf("Failed to log trade: %v", err)
		}
	}

	recent := th.GetRecentTrades(10)
	if len(recent) != 3 {
		t.Fatalf("Expected 3 buffered trades, got %d", len(recent))
	}
	// Oldest two trades were evicted
	if recent[0].Trader != "walletA" || recent[0].Side != "sell" {
		t.Errorf("Unexpected oldest buffered trade: %+v", recent[0])
	}

	byMarket := th.GetTradesByMarket(testMarketB)
	if len(byMarket) != 2 {
		t.Errorf("Expected 2 buffered trades for market B, got %d", len(byMarket))
	}

	stats := th.GetStatistics()
	if stats.TotalTrades != 5 {
		t.Errorf("Expected 5 total trades, got %d", stats.TotalTrades)
	}
	if stats.BuyCount != 4 || stats.SellCount != 1 {
		t.Errorf("Expected 4 buys and 1 sell, got %d and %d", stats.BuyCount, stats.SellCount)
	}
	if stats.MaxSlippageBps != 3050 {
		t.Errorf("Expected max slippage 3050 bps, got %d", stats.MaxSlippageBps)
	}

	if err := th.Close(); err != nil {
		t.Fatalf("Failed to close trade history: %v", err)
	}
	// Close is idempotent
	if err := th.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}

	// All five trades landed in the journal
	files, err := filepath.Glob(filepath.Join(tempDir, "trades", "*.csv"))
	if err != nil || len(files) != 1 {
		t.Fatalf("Expected one journal file, got %v (err %v)", files, err)
	}
	rows := readCSVRows(t, files[0])
	if len(rows) != 6 {
		t.Errorf("Expected header plus 5 rows, got %d rows", len(rows))
	}
}

func TestTradeHistoryBusConsumption(t *testing.T) {
	tempDir := t.TempDir()
	logger := zap.NewNop()

	bus := events.NewBus(logger, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})

	th, err := NewTradeHistory(tempDir, 16, logger)
	if err != nil {
		t.Fatalf("Failed to create trade history: %v", err)
	}
	th.Attach(bus)

	evt := events.TradeExecutedEvent{
		BaseEvent:   events.NewBase(events.TradeExecuted),
		MarketID:    testMarketA,
		Trader:      "walletA",
		Outcome:     0,
		Side:        "buy",
		Amount:      10_000,
		Value:       25_250_000,
		NewSupply:   10_000,
		SlippageBps: 1525,
	}
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("Failed to deliver event: %v", err)
	}

	recent := th.GetRecentTrades(1)
	if len(recent) != 1 {
		t.Fatalf("Expected 1 buffered trade, got %d", len(recent))
	}
	if recent[0].MarketID != testMarketA || recent[0].Value != 25_250_000 {
		t.Errorf("Unexpected buffered trade: %+v", recent[0])
	}

	if err := th.Close(); err != nil {
		t.Fatalf("Failed to close trade history: %v", err)
	}

	// Detached after close: further events are not recorded
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("Publish after close failed: %v", err)
	}
	if stats := th.GetStatistics(); stats.TotalTrades != 1 {
		t.Errorf("Expected 1 trade after close, got %d", stats.TotalTrades)
	}
}
