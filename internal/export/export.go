// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	StartTime    time.Time
	EndTime      time.Time
	MarketFilter uuid.UUID // Filter by market (zero = all markets)
	SideFilter   string    // Filter by side (buy/sell)
	TraderFilter string    // Filter by trader wallet
	OutputDir    string
}

// CSVHeader returns the column names for exported trade journals.
func CSVHeader() []string {
	return []string{
		"timestamp", "market_id", "trader", "side", "outcome",
		"amount", "value", "value_sol", "new_supply", "slippage_bps",
	}
}

// CSVRow renders a journal record as a CSV row matching CSVHeader.
func CSVRow(rec *models.TradeRecord) []string {
	return []string{
		rec.ExecutedAt.Format(time.RFC3339),
		rec.MarketID.String(),
		rec.Trader,
		rec.Side,
		market.Outcome(rec.Outcome).String(),
		strconv.FormatUint(rec.Amount, 10),
		strconv.FormatUint(rec.Value, 10),
		lamportsToSOL(rec.Value),
		strconv.FormatUint(rec.NewSupply, 10),
		strconv.FormatUint(uint64(rec.SlippageBps), 10),
	}
}

// lamportsToSOL renders a raw lamport amount as a decimal SOL string.
func lamportsToSOL(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -9).String()
}

// exportedTrade is the JSON shape of a journal record. Хранимая модель
// не сериализуется напрямую.
type exportedTrade struct {
	MarketID    uuid.UUID `json:"market_id"`
	Trader      string    `json:"trader"`
	Side        string    `json:"side"`
	Outcome     string    `json:"outcome"`
	Amount      uint64    `json:"amount"`
	Value       uint64    `json:"value"`
	ValueSOL    string    `json:"value_sol"`
	NewSupply   uint64    `json:"new_supply"`
	SlippageBps uint16    `json:"slippage_bps"`
	ExecutedAt  time.Time `json:"executed_at"`
}

func newExportedTrade(rec *models.TradeRecord) exportedTrade {
	return exportedTrade{
		MarketID:    rec.MarketID,
		Trader:      rec.Trader,
		Side:        rec.Side,
		Outcome:     market.Outcome(rec.Outcome).String(),
		Amount:      rec.Amount,
		Value:       rec.Value,
		ValueSOL:    lamportsToSOL(rec.Value),
		NewSupply:   rec.NewSupply,
		SlippageBps: rec.SlippageBps,
		ExecutedAt:  rec.ExecutedAt,
	}
}

// TradeExporter handles trade export functionality
type TradeExporter struct {
	logger *zap.Logger
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger,
	}
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []*models.TradeRecord, options ExportOptions) (string, error) {
	// Filter trades
	filtered := te.filterTrades(trades, options)

	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	// Sort by execution time
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	// Generate filename
	filename := te.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// Export based on format
	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// filterTrades applies filters to the trade list
func (te *TradeExporter) filterTrades(trades []*models.TradeRecord, options ExportOptions) []*models.TradeRecord {
	var filtered []*models.TradeRecord

	for _, trade := range trades {
		// Time filter
		if !options.StartTime.IsZero() && trade.ExecutedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.ExecutedAt.After(options.EndTime) {
			continue
		}

		// Market filter
		if options.MarketFilter != uuid.Nil && trade.MarketID != options.MarketFilter {
			continue
		}

		// Side filter
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}

		// Trader filter
		if options.TraderFilter != "" && trade.Trader != options.TraderFilter {
			continue
		}

		filtered = append(filtered, trade)
	}

	return filtered
}

// generateFilename creates a filename based on export options
func (te *TradeExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	var prefix string
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.SideFilter)
	} else {
		prefix = "trades_all"
	}

	if options.MarketFilter != uuid.Nil {
		prefix += "_" + options.MarketFilter.String()[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// exportToCSV exports trades to CSV format
func (te *TradeExporter) exportToCSV(trades []*models.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write headers
	if err := writer.Write(CSVHeader()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	// Write trades
	for _, trade := range trades {
		if err := writer.Write(CSVRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}

	return nil
}

// exportToJSON exports trades to JSON format
func (te *TradeExporter) exportToJSON(trades []*models.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	views := make([]exportedTrade, 0, len(trades))
	for _, trade := range trades {
		views = append(views, newExportedTrade(trade))
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	// Create export data with metadata
	exportData := struct {
		ExportTime time.Time       `json:"export_time"`
		TradeCount int             `json:"trade_count"`
		Trades     []exportedTrade `json:"trades"`
		Summary    ExportSummary   `json:"summary"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Trades:     views,
		Summary:    te.calculateSummary(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// calculateSummary calculates summary statistics for the export
func (te *TradeExporter) calculateSummary(trades []*models.TradeRecord) ExportSummary {
	summary := ExportSummary{
		TotalTrades: len(trades),
	}

	if len(trades) == 0 {
		return summary
	}

	// Calculate date range
	summary.StartDate = trades[0].ExecutedAt
	summary.EndDate = trades[len(trades)-1].ExecutedAt

	// Calculate statistics
	marketSet := make(map[uuid.UUID]bool)
	traderSet := make(map[string]bool)
	var slippageSum uint64

	for _, trade := range trades {
		marketSet[trade.MarketID] = true
		traderSet[trade.Trader] = true
		slippageSum += uint64(trade.SlippageBps)

		if trade.SlippageBps > summary.MaxSlippageBps {
			summary.MaxSlippageBps = trade.SlippageBps
		}

		if trade.Side == "buy" {
			summary.BuyCount++
			summary.BuyVolume += trade.Value
		} else if trade.Side == "sell" {
			summary.SellCount++
			summary.SellVolume += trade.Value
		}
	}

	summary.UniqueMarkets = len(marketSet)
	summary.UniqueTraders = len(traderSet)
	summary.AvgSlippageBps = uint16(slippageSum / uint64(len(trades)))
	summary.BuyVolumeSOL = lamportsToSOL(summary.BuyVolume)
	summary.SellVolumeSOL = lamportsToSOL(summary.SellVolume)

	return summary
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades    int       `json:"total_trades"`
	BuyCount       int       `json:"buy_count"`
	SellCount      int       `json:"sell_count"`
	UniqueMarkets  int       `json:"unique_markets"`
	UniqueTraders  int       `json:"unique_traders"`
	BuyVolume      uint64    `json:"buy_volume"`
	SellVolume     uint64    `json:"sell_volume"`
	BuyVolumeSOL   string    `json:"buy_volume_sol"`
	SellVolumeSOL  string    `json:"sell_volume_sol"`
	MaxSlippageBps uint16    `json:"max_slippage_bps"`
	AvgSlippageBps uint16    `json:"avg_slippage_bps"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

// ExportDailyReport exports a daily summary report
func (te *TradeExporter) ExportDailyReport(trades []*models.TradeRecord, date time.Time, outputDir string) (string, error) {
	// Filter trades for the specific day
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	options := ExportOptions{
		Format:    FormatJSON,
		StartTime: startOfDay,
		EndTime:   endOfDay,
		OutputDir: outputDir,
	}

	// Use a custom filename for daily reports
	filename := fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102"))
	outputPath := filepath.Join(outputDir, filename)

	// Filter trades for the day
	filtered := te.filterTrades(trades, options)

	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report",
			zap.Time("date", startOfDay))
		return "", nil
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	views := make([]exportedTrade, 0, len(filtered))
	for _, trade := range filtered {
		views = append(views, newExportedTrade(trade))
	}

	// Create daily report
	report := DailyReport{
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Trades:          views,
		Summary:         te.calculateSummary(filtered),
		HourlyBreakdown: te.calculateHourlyBreakdown(filtered),
	}

	// Write report
	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))

	return outputPath, nil
}

// DailyReport represents a daily trading report
type DailyReport struct {
	Date            time.Time       `json:"date"`
	TradeCount      int             `json:"trade_count"`
	Summary         ExportSummary   `json:"summary"`
	HourlyBreakdown []HourlyStats   `json:"hourly_breakdown"`
	Trades          []exportedTrade `json:"trades"`
}

// HourlyStats represents trading statistics for an hour
type HourlyStats struct {
	Hour       int    `json:"hour"`
	TradeCount int    `json:"trade_count"`
	BuyCount   int    `json:"buy_count"`
	SellCount  int    `json:"sell_count"`
	Volume     uint64 `json:"volume"`
}

// calculateHourlyBreakdown calculates hourly trading statistics
func (te *TradeExporter) calculateHourlyBreakdown(trades []*models.TradeRecord) []HourlyStats {
	hourlyMap := make(map[int]*HourlyStats)

	for _, trade := range trades {
		hour := trade.ExecutedAt.Hour()

		stats, exists := hourlyMap[hour]
		if !exists {
			stats = &HourlyStats{Hour: hour}
			hourlyMap[hour] = stats
		}

		stats.TradeCount++
		stats.Volume += trade.Value

		if trade.Side == "buy" {
			stats.BuyCount++
		} else if trade.Side == "sell" {
			stats.SellCount++
		}
	}

	// Convert map to sorted slice
	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, exists := hourlyMap[hour]; exists {
			breakdown = append(breakdown, *stats)
		}
	}

	return breakdown
}
