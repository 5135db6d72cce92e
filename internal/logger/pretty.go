// internal/logger/pretty.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// customCallerEncoder hides caller information for cleaner logs
func customCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	// Don't show caller for cleaner output
}

// CreatePrettyLogger creates a logger with user-friendly output
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	// Create a custom encoder that suppresses extra fields
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}

	// Custom core that filters out unwanted fields
	var core zapcore.Core
	if debug {
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			zap.DebugLevel,
		)
	} else {
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			zap.InfoLevel,
		)
	}

	// Create a custom core wrapper that filters out additional fields
	filteredCore := &FieldFilterCore{core: core}
	return zap.New(filteredCore), nil
}

// FormatMessage creates user-friendly log messages
func FormatMessage(msg string, fields ...zap.Field) string {
	// Extract common patterns and make them prettier
	switch {
	case strings.Contains(msg, "License validated"):
		return fmt.Sprintf("%s✓ License validated successfully%s", ColorGreen, ColorReset)

	case strings.Contains(msg, "Market created"):
		desc := extractField(fields, "description")
		return fmt.Sprintf("%s📈 Market created: %s%s", ColorBlue, desc, ColorReset)

	case strings.Contains(msg, "Market activated"):
		id := extractField(fields, "market_id")
		return fmt.Sprintf("%s🟢 Market %s is open for trading%s", ColorGreen, shortenAddress(id), ColorReset)

	case strings.Contains(msg, "Trade executed"):
		side := extractField(fields, "side")
		outcome := extractField(fields, "outcome")
		value := extractField(fields, "value")
		return fmt.Sprintf("%s💱 %s %s for %s lamports%s", ColorCyan, strings.ToUpper(side), outcome, value, ColorReset)

	case strings.Contains(msg, "Market settled"):
		winner := extractField(fields, "winning_outcome")
		return fmt.Sprintf("%s🏁 Market settled: %s wins%s", ColorGreen+ColorBold, winner, ColorReset)

	case strings.Contains(msg, "Payout claimed"):
		payout := extractField(fields, "payout")
		return fmt.Sprintf("%s💰 Payout claimed: %s lamports%s", ColorGreen, payout, ColorReset)

	case strings.Contains(msg, "Dispute opened"):
		id := extractField(fields, "market_id")
		return fmt.Sprintf("%s⚖️ Settlement disputed on market %s%s", ColorYellow, shortenAddress(id), ColorReset)

	case strings.Contains(msg, "Dispute resolved"):
		outcome := extractField(fields, "outcome")
		return fmt.Sprintf("%s⚖️ Dispute resolved: %s%s", ColorPurple, outcome, ColorReset)

	case strings.Contains(msg, "Oracle provider registered"):
		provider := extractField(fields, "provider_id")
		return fmt.Sprintf("%s🔮 Oracle provider registered: %s%s", ColorPurple, provider, ColorReset)

	case strings.Contains(msg, "Oracle data submitted"):
		outcome := extractField(fields, "outcome")
		return fmt.Sprintf("%s📡 Oracle reports %s%s", ColorCyan, outcome, ColorReset)

	case strings.Contains(msg, "HTTP server listening"):
		addr := extractField(fields, "addr")
		return fmt.Sprintf("%s🌐 API listening on %s%s", ColorBlue, addr, ColorReset)

	case strings.Contains(msg, "engine started"):
		return fmt.Sprintf("%s🚀 Prediction pump engine started%s", ColorGreen+ColorBold, ColorReset)

	default:
		return msg
	}
}

// Helper functions
func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key == key {
			if field.Interface != nil {
				return fmt.Sprintf("%v", field.Interface)
			}
			if field.String != "" {
				return field.String
			}
			return fmt.Sprintf("%d", field.Integer)
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// FieldFilterCore wraps a zapcore.Core to filter out unwanted fields
type FieldFilterCore struct {
	core zapcore.Core
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &FieldFilterCore{core: c.core.With(fields)}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.core.Check(entry, checked)
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// Filter out unwanted fields - only keep message
	var filteredFields []zapcore.Field

	// Create a cleaner message without extra data
	cleanMsg := entry.Message

	// Replace the entry message with clean version
	cleanEntry := entry
	cleanEntry.Message = cleanMsg

	return c.core.Write(cleanEntry, filteredFields)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}

// CreatePrettyLoggerWithBuffer creates a logger with user-friendly output and log buffer
func CreatePrettyLoggerWithBuffer(debug bool, buffer *LogBuffer) (*zap.Logger, error) {
	// Create a custom encoder that suppresses extra fields
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}

	// Create base core for console output
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	// Create buffer core if buffer is provided
	var cores []zapcore.Core

	if buffer != nil {
		// Create JSON encoder for buffer (structured logs)
		jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		bufferCore := zapcore.NewCore(
			jsonEncoder,
			zapcore.AddSync(buffer),
			level,
		)
		cores = append(cores, bufferCore)
	} else {
		// Fallback to console output only if no buffer provided
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			level,
		)
		cores = append(cores, &FieldFilterCore{core: consoleCore})
	}

	// Combine cores
	multiCore := zapcore.NewTee(cores...)
	return zap.New(multiCore), nil
}

// CreateTUILoggerWithBuffer creates a TUI-compatible logger that only writes to buffer
func CreateTUILoggerWithBuffer(debug bool, buffer *LogBuffer) (*zap.Logger, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required for TUI logger")
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	// Create clean encoder for buffer logs
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	// Only use buffer core - NO console output to avoid breaking TUI
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
	bufferCore := zapcore.NewCore(
		jsonEncoder,
		zapcore.AddSync(buffer),
		level,
	)

	return zap.New(bufferCore), nil
}
