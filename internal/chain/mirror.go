// internal/chain/mirror.go
package chain

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const syncTimeout = 10 * time.Second

// MarketSnapshotFunc вызывается для каждого декодированного рыночного
// аккаунта при очередной синхронизации.
type MarketSnapshotFunc func(address solana.PublicKey, account *MarketAccount)

// SyncObserver получает длительность и результат каждой синхронизации.
type SyncObserver func(duration time.Duration, err error)

// MirrorConfig — конфигурация зеркала цепочки.
type MirrorConfig struct {
	Client    *Client
	ProgramID solana.PublicKey
	Interval  time.Duration
	Logger    *zap.Logger
	OnMarket  MarketSnapshotFunc
	OnSync    SyncObserver
}

// Mirror periodically pulls every market account of the program and
// hands decoded snapshots to the engine. It never writes to the chain
// and never blocks trading: a failed sync is logged and retried on the
// next tick.
type Mirror struct {
	client    *Client
	programID solana.PublicKey
	interval  time.Duration
	logger    *zap.Logger
	onMarket  MarketSnapshotFunc
	onSync    SyncObserver
}

// NewMirror создает новое зеркало цепочки.
func NewMirror(cfg MirrorConfig) (*Mirror, error) {
	if cfg.Client == nil {
		return nil, errors.New("mirror requires a chain client")
	}
	if cfg.ProgramID.IsZero() {
		return nil, errors.New("mirror requires a program ID")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("mirror interval must be positive")
	}
	return &Mirror{
		client:    cfg.Client,
		programID: cfg.ProgramID,
		interval:  cfg.Interval,
		logger:    cfg.Logger.Named("chain_mirror"),
		onMarket:  cfg.OnMarket,
		onSync:    cfg.OnSync,
	}, nil
}

// Run запускает цикл синхронизации до отмены контекста.
func (m *Mirror) Run(ctx context.Context) error {
	m.logger.Info("Starting chain mirror",
		zap.String("program_id", m.programID.String()),
		zap.Duration("interval", m.interval))

	// Первая синхронизация сразу, дальше по тикеру.
	m.syncOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.syncOnce(ctx)
		case <-ctx.Done():
			m.logger.Debug("Chain mirror stopped")
			return nil
		}
	}
}

func (m *Mirror) syncOnce(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	start := time.Now()
	accounts, err := m.client.GetProgramAccounts(syncCtx, m.programID)
	if m.onSync != nil {
		m.onSync(time.Since(start), err)
	}
	if err != nil {
		m.logger.Warn("Chain sync failed", zap.Error(err))
		return
	}

	var mirrored, skipped int
	for _, keyed := range accounts {
		if keyed == nil || keyed.Account == nil {
			continue
		}
		raw := keyed.Account.Data.GetBinary()
		// Программа держит и другие аккаунты (оракулы, споры);
		// отбираем рынки по дискриминатору.
		if len(raw) < discriminatorLength || !bytes.Equal(raw[:discriminatorLength], marketDiscriminator) {
			continue
		}

		market, err := DecodeMarketAccount(raw)
		if err != nil {
			skipped++
			m.logger.Debug("Skipping undecodable market account",
				zap.String("address", keyed.Pubkey.String()),
				zap.Error(err))
			continue
		}

		mirrored++
		if m.onMarket != nil {
			m.onMarket(keyed.Pubkey, market)
		}
	}

	m.logger.Debug("Chain sync complete",
		zap.Int("markets", mirrored),
		zap.Int("skipped", skipped),
		zap.Duration("took", time.Since(start)))
}
