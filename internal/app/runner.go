// internal/app/runner.go

// Package app собирает движок из конфигурации: хранилище, кэш, шина
// событий, HTTP/websocket сервер и зеркало цепочки — и ведёт их общий
// жизненный цикл от проверки лицензии до останова по сигналу.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/prediction-pump/internal/api"
	"github.com/rovshanmuradov/prediction-pump/internal/cache"
	redisCache "github.com/rovshanmuradov/prediction-pump/internal/cache/redis"
	"github.com/rovshanmuradov/prediction-pump/internal/chain"
	"github.com/rovshanmuradov/prediction-pump/internal/config"
	"github.com/rovshanmuradov/prediction-pump/internal/engine"
	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/export"
	"github.com/rovshanmuradov/prediction-pump/internal/license"
	"github.com/rovshanmuradov/prediction-pump/internal/metrics"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/postgres"
)

// statsInterval — период выгрузки статистики шины в лог и метрики.
const statsInterval = time.Minute

// historyBuffer — хвост журнала сделок, который держим в памяти.
const historyBuffer = 1000

type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	shutdownCh chan os.Signal
}

// NewRunner: принимает cfg и logger
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		logger:     logger,
		config:     cfg,
		shutdownCh: make(chan os.Signal, 1),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.logger.Info("📡 Signal received: " + sig.String())
		cancel()
	}()

	// Лицензия проверяется раньше любых подключений.
	if err := r.validateLicense(ctx); err != nil {
		return fmt.Errorf("license validation failed: %w", err)
	}

	store, err := postgres.NewStorage(r.config.PostgresURL, r.logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("storage close", zap.Error(err))
		}
	}()

	if err := store.RunMigrations(runCtx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	priceCache := r.buildCache(runCtx)
	collector := metrics.NewCollector()

	bus := events.NewBus(r.logger, r.config.EventBuffer)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := bus.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("event bus shutdown", zap.Error(err))
		}
	}()

	svc, err := engine.NewService(engine.ServiceConfig{
		Logger:  r.logger,
		Storage: store,
		Bus:     bus,
		Cache:   priceCache,
		Metrics: collector,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	tradeLog := r.config.TradeLogDir != ""
	if tradeLog {
		history, err := export.NewTradeHistory(r.config.TradeLogDir, historyBuffer, r.logger)
		if err != nil {
			return fmt.Errorf("trade history: %w", err)
		}
		history.Attach(bus)
		defer func() {
			if err := history.Close(); err != nil {
				r.logger.Warn("trade history close", zap.Error(err))
			}
		}()
	}

	server, err := api.NewServer(api.Config{Addr: r.config.HTTPAddr}, svc, bus, collector, r.logger)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	mirrorEnabled := len(r.config.RPCList) > 0
	if mirrorEnabled {
		mirror, err := r.buildMirror(runCtx, collector)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return mirror.Run(gctx)
		})
	}

	g.Go(func() error {
		r.statsLoop(gctx, bus, collector)
		return nil
	})

	r.logger.Info("🚀 Prediction pump engine started",
		zap.String("http_addr", r.config.HTTPAddr),
		zap.Bool("chain_mirror", mirrorEnabled),
		zap.Bool("price_cache", priceCache != nil),
		zap.Bool("trade_log", tradeLog))

	return g.Wait()
}

// Shutdown завершает работу и сбрасывает буферы логгера.
func (r *Runner) Shutdown() {
	r.logger.Info("👋 Engine shutting down gracefully")

	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}

// validateLicense выбирает режим проверки: Keygen при полных учётных
// данных, иначе базовая офлайн-проверка.
func (r *Runner) validateLicense(ctx context.Context) error {
	var v license.Validator
	if r.config.KeygenAccountID != "" && r.config.KeygenProductToken != "" && r.config.KeygenProductID != "" {
		v = license.NewKeygenValidator(
			r.config.KeygenAccountID,
			r.config.KeygenProductToken,
			r.config.KeygenProductID,
			r.logger,
		)
	} else {
		v = license.NewBasicValidator(r.logger)
	}
	return v.Validate(ctx, r.config.License)
}

// buildCache подключает redis-кэш цен. Недоступный redis не валит
// запуск: движок просто работает без горячих чтений.
func (r *Runner) buildCache(ctx context.Context) cache.PriceCache {
	if r.config.RedisAddr == "" {
		return nil
	}

	client, err := redisCache.New(ctx, redisCache.ClientConfig{
		Addr:     r.config.RedisAddr,
		Password: r.config.RedisPassword,
		DB:       r.config.RedisDB,
	})
	if err != nil {
		r.logger.Warn("⚠️ Redis unavailable, price cache disabled", zap.Error(err))
		return nil
	}

	return redisCache.NewPriceCache(client)
}

// buildMirror собирает зеркало он-чейн программы. Если rpc_list задан,
// но ни один эндпоинт не отвечает, запуск прерывается: оператор явно
// просил зеркало.
func (r *Runner) buildMirror(ctx context.Context, collector *metrics.Collector) (*chain.Mirror, error) {
	programID, err := solana.PublicKeyFromBase58(r.config.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("chain: invalid program id: %w", err)
	}

	client, err := chain.NewClient(ctx, r.config.RPCList, r.logger)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}

	return chain.NewMirror(chain.MirrorConfig{
		Client:    client,
		ProgramID: programID,
		Interval:  time.Duration(r.config.MirrorDelay) * time.Millisecond,
		Logger:    r.logger,
		OnMarket:  r.observeMarket,
		OnSync: func(d time.Duration, err error) {
			collector.RecordChainMirror(d, err == nil)
		},
	})
}

// observeMarket получает снимок он-чейн рынка на каждом проходе зеркала.
func (r *Runner) observeMarket(address solana.PublicKey, acc *chain.MarketAccount) {
	if err := acc.Params.Validate(); err != nil {
		r.logger.Warn("⛓️ On-chain market carries invalid curve params",
			zap.String("address", address.String()),
			zap.Error(err))
		return
	}

	r.logger.Debug("⛓️ Mirrored market",
		zap.String("address", address.String()),
		zap.String("description", acc.Description),
		zap.Uint64("volume", acc.TotalVolume),
		zap.Bool("active", acc.IsActive),
		zap.Bool("settled", acc.IsSettled))
}

// statsLoop периодически снимает статистику шины: счётчик потерь уходит
// в метрики, остальное — в отладочный лог.
func (r *Runner) statsLoop(ctx context.Context, bus *events.Bus, collector *metrics.Collector) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := bus.Stats()
			collector.SetEventsDropped(st.Dropped)
			r.logger.Debug("event bus stats",
				zap.Int("pending", st.Pending),
				zap.Uint64("dropped", st.Dropped))
		}
	}
}
