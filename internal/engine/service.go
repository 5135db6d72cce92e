// internal/engine/service.go

// Package engine orchestrates the off-chain prediction market: it owns
// market lifecycle, trade execution over the bonding curve, oracle
// submissions, settlement and disputes. The pricing math itself lives in
// internal/curve and stays pure; this package is where state, storage,
// cache and events meet.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/cache"
	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/metrics"
	"github.com/rovshanmuradov/prediction-pump/internal/oracle"
	"github.com/rovshanmuradov/prediction-pump/internal/storage"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// ServiceConfig — зависимости движка. Cache и Metrics опциональны:
// nil-кэш отключает горячие чтения, nil-коллектор — метрики.
type ServiceConfig struct {
	Logger             *zap.Logger
	Storage            storage.Storage
	Bus                *events.Bus
	Cache              cache.PriceCache
	Metrics            *metrics.Collector
	OracleAuthority    string
	ConsensusThreshold uint8
}

// Service реализует операции движка поверх хранилища.
type Service struct {
	logger  *zap.Logger
	store   storage.Storage
	bus     *events.Bus
	cache   cache.PriceCache
	metrics *metrics.Collector

	// Реестр провайдеров живёт в памяти: источником истины служит
	// он-чейн аккаунт реестра, движок пересобирает его при старте.
	regMu    sync.RWMutex
	registry *oracle.Registry

	// Записи рынков мутируются последовательно; блокировка на рынок.
	marketLocks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewService создает новый экземпляр движка.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Logger == nil {
		return nil, errors.New("engine requires a logger")
	}
	if cfg.Storage == nil {
		return nil, errors.New("engine requires storage")
	}
	if cfg.Bus == nil {
		return nil, errors.New("engine requires an event bus")
	}

	authority := cfg.OracleAuthority
	if authority == "" {
		authority = "engine"
	}
	threshold := cfg.ConsensusThreshold
	if threshold == 0 {
		threshold = 1
	}
	registry, err := oracle.NewRegistry(authority, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to build oracle registry: %w", err)
	}

	return &Service{
		logger:   cfg.Logger.Named("engine"),
		store:    cfg.Storage,
		bus:      cfg.Bus,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		registry: registry,
	}, nil
}

// CreateMarketRequest — параметры создания рынка.
type CreateMarketRequest struct {
	Creator        string       `json:"creator"`
	Description    string       `json:"description"`
	ResolutionDate time.Time    `json:"resolution_date"`
	OracleSource   string       `json:"oracle_source"`
	OutcomeMints   []string     `json:"outcome_mints"`
	Params         curve.Params `json:"params"`
}

// CreateMarket валидирует и сохраняет новый рынок. Рынок создаётся
// неактивным: торговлю открывает ActivateMarket с посевной ликвидностью.
func (s *Service) CreateMarket(ctx context.Context, req CreateMarketRequest) (*market.Market, error) {
	m, err := market.New(req.Creator, req.Description, req.ResolutionDate, req.OracleSource, req.OutcomeMints, req.Params)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveMarket(ctx, models.FromMarket(m, 0)); err != nil {
		return nil, fmt.Errorf("failed to save market: %w", err)
	}

	s.logger.Info("📈 Market created",
		zap.String("market_id", m.ID.String()),
		zap.String("description", m.Description),
		zap.Time("resolution_date", m.ResolutionDate))

	s.publish(events.MarketCreatedEvent{
		BaseEvent:   events.NewBase(events.MarketCreated),
		MarketID:    m.ID,
		Creator:     m.Creator,
		Description: m.Description,
	})
	return m, nil
}

// ActivateMarket открывает рынок для торговли, зачисляя посевную
// ликвидность в хранилище рынка.
func (s *Service) ActivateMarket(ctx context.Context, marketID uuid.UUID, seedLiquidity uint64) (*market.Market, error) {
	unlock := s.lockMarket(marketID)
	defer unlock()

	m, vault, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if err := m.Activate(seedLiquidity); err != nil {
		return nil, err
	}
	newVault, err := curve.CheckedAdd(vault, seedLiquidity)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateMarket(ctx, models.FromMarket(m, newVault)); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}

	s.logger.Info("🟢 Market activated",
		zap.String("market_id", m.ID.String()),
		zap.Uint64("liquidity", seedLiquidity))

	s.publish(events.MarketActivatedEvent{
		BaseEvent: events.NewBase(events.MarketActivated),
		MarketID:  m.ID,
		Liquidity: seedLiquidity,
	})
	s.refreshMarketState(ctx, m)
	return m, nil
}

// GetMarket возвращает рынок и текущий баланс его хранилища.
func (s *Service) GetMarket(ctx context.Context, marketID uuid.UUID) (*market.Market, uint64, error) {
	return s.loadMarket(ctx, marketID)
}

// ListMarkets возвращает страницу рынков, новые первыми.
func (s *Service) ListMarkets(ctx context.Context, onlyOpen bool, limit, offset int) ([]*market.Market, error) {
	recs, err := s.store.ListMarkets(ctx, onlyOpen, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	markets := make([]*market.Market, 0, len(recs))
	for _, rec := range recs {
		m, _ := rec.ToMarket()
		markets = append(markets, m)
	}
	return markets, nil
}

// ListTrades возвращает страницу сделок рынка, свежие первыми.
func (s *Service) ListTrades(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.TradeRecord, error) {
	trades, err := s.store.ListTrades(ctx, marketID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Вспомогательные методы

func (s *Service) lockMarket(marketID uuid.UUID) func() {
	v, _ := s.marketLocks.LoadOrStore(marketID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) loadMarket(ctx context.Context, marketID uuid.UUID) (*market.Market, uint64, error) {
	rec, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrMarketNotFound, marketID)
		}
		return nil, 0, fmt.Errorf("failed to load market: %w", err)
	}
	m, vault := rec.ToMarket()
	return m, vault, nil
}

// publish шлёт событие без ожидания: переполненная шина роняет событие,
// торговый путь не блокируется.
func (s *Service) publish(event events.Event) {
	if err := s.bus.Publish(event); err != nil {
		s.logger.Debug("Event dropped", zap.String("type", string(event.Type())), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.SetEventsDropped(s.bus.Stats().Dropped)
	}
}

// refreshMarketState пересчитывает спот-цены обеих сторон и обновляет
// кэш с метриками. Ошибки кэша только логируются: кэш не источник истины.
func (s *Service) refreshMarketState(ctx context.Context, m *market.Market) {
	for i := range m.Outcomes {
		token := &m.Outcomes[i]
		spot, err := m.Params.PriceAt(token.Supply)
		if err != nil {
			s.logger.Warn("Spot price unavailable",
				zap.String("market_id", m.ID.String()),
				zap.String("side", token.Side.String()),
				zap.Error(err))
			continue
		}
		cap, err := m.Params.MarketCap(token.Supply)
		if err != nil {
			cap = 0
		}

		if s.metrics != nil {
			s.metrics.SetMarketState(m.ID, token.Side.String(), token.Supply, spot)
		}
		if s.cache != nil {
			st := cache.State{Price: spot, Supply: token.Supply, MarketCap: cap, UpdatedAt: time.Now()}
			if err := s.cache.SetState(ctx, m.ID, token.Side, st); err != nil {
				s.logger.Warn("Price cache update failed",
					zap.String("market_id", m.ID.String()),
					zap.Error(err))
				if s.metrics != nil {
					s.metrics.RecordCacheOp("set", false)
				}
			} else if s.metrics != nil {
				s.metrics.RecordCacheOp("set", true)
			}
		}

		s.publish(events.PriceUpdatedEvent{
			BaseEvent: events.NewBase(events.PriceUpdated),
			MarketID:  m.ID,
			Outcome:   uint8(token.Side),
			Supply:    token.Supply,
			SpotPrice: spot,
			MarketCap: cap,
		})
	}
}
