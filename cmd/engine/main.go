// ====================================
// File: cmd/engine/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/app"
	"github.com/rovshanmuradov/prediction-pump/internal/config"
	"github.com/rovshanmuradov/prediction-pump/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting prediction pump engine", zap.String("config", *configPath))

	runner := app.NewRunner(cfg, log.Logger)
	if err := runner.Run(ctx); err != nil {
		log.Error("Engine execution error", zap.Error(err))
		runner.Shutdown()
		os.Exit(1)
	}

	runner.Shutdown()
}
