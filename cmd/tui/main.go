// cmd/tui/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/logger"
	"github.com/rovshanmuradov/prediction-pump/internal/tui"
)

// logBufferSize is how many prettified entries the in-memory log pane
// retains; older entries spill to the file below.
const logBufferSize = 500

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging in the log pane")
	spillPath := flag.String("log-spill", defaultSpillPath(), "File receiving log entries evicted from the pane buffer")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The TUI owns the terminal, so logs go into a ring buffer rendered
	// by the log pane instead of stdout.
	buffer, err := logger.NewLogBuffer(logBufferSize, *spillPath, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to init log buffer: %v", err)
	}
	defer func() {
		_ = buffer.Close()
	}()

	appLogger, err := logger.CreateTUILoggerWithBuffer(*debug, buffer)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("🚀 Starting bonding curve explorer", zap.Bool("debug", *debug))

	program := tea.NewProgram(
		tui.NewExplorer(appLogger, buffer),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	done := make(chan error, 1)
	go func() {
		_, err := program.Run()
		done <- err
	}()

	select {
	case <-rootCtx.Done():
		appLogger.Info("👋 Shutting down explorer")
		program.Quit()
		<-done
	case err := <-done:
		if err != nil {
			appLogger.Error("💥 Explorer failed", zap.Error(err))
			os.Exit(1)
		}
	}
}

// defaultSpillPath keeps the spill file out of the working directory.
func defaultSpillPath() string {
	return filepath.Join(os.TempDir(), "prediction-pump-tui.log")
}
