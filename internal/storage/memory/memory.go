// internal/storage/memory/memory.go

// Package memory — хранилище в памяти за интерфейсом storage.Storage.
// Живёт в тестах и в однопроцессных утилитах, где Postgres избыточен;
// записи копируются на границе, как строки настоящей БД.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/storage"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// Storage реализует storage.Storage поверх карт.
type Storage struct {
	mu       sync.RWMutex
	markets  map[uuid.UUID]*models.MarketRecord
	order    []uuid.UUID
	trades   []*models.TradeRecord
	readouts map[uuid.UUID]*models.OracleRecord
	disputes map[uuid.UUID]*models.DisputeRecord
}

// New создает пустое хранилище.
func New() *Storage {
	return &Storage{
		markets:  make(map[uuid.UUID]*models.MarketRecord),
		readouts: make(map[uuid.UUID]*models.OracleRecord),
		disputes: make(map[uuid.UUID]*models.DisputeRecord),
	}
}

var _ storage.Storage = (*Storage)(nil)

// Рынки

func (s *Storage) SaveMarket(_ context.Context, rec *models.MarketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[rec.MarketID]; !ok {
		s.order = append(s.order, rec.MarketID)
	}
	cp := *rec
	s.markets[rec.MarketID] = &cp
	return nil
}

func (s *Storage) UpdateMarket(_ context.Context, rec *models.MarketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[rec.MarketID]; !ok {
		return storage.ErrNotFound
	}
	cp := *rec
	s.markets[rec.MarketID] = &cp
	return nil
}

func (s *Storage) GetMarket(_ context.Context, marketID uuid.UUID) (*models.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.markets[marketID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Storage) ListMarkets(_ context.Context, onlyOpen bool, limit, offset int) ([]*models.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var recs []*models.MarketRecord
	// Новые первыми, как сортирует Postgres-бэкенд.
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.markets[s.order[i]]
		if onlyOpen && (!rec.Active || rec.Settled) {
			continue
		}
		cp := *rec
		recs = append(recs, &cp)
	}
	return page(recs, limit, offset), nil
}

// Сделки

func (s *Storage) SaveTrade(_ context.Context, trade *models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *trade
	s.trades = append(s.trades, &cp)
	return nil
}

func (s *Storage) ListTrades(_ context.Context, marketID uuid.UUID, limit, offset int) ([]*models.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trades []*models.TradeRecord
	for _, tr := range s.trades {
		if tr.MarketID == marketID {
			cp := *tr
			trades = append(trades, &cp)
		}
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ExecutedAt.After(trades[j].ExecutedAt)
	})
	return page(trades, limit, offset), nil
}

// Данные оракулов

func (s *Storage) SaveOracleData(_ context.Context, rec *models.OracleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.readouts[rec.DataID] = &cp
	return nil
}

func (s *Storage) UpdateOracleData(_ context.Context, rec *models.OracleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.readouts[rec.DataID]; !ok {
		return storage.ErrNotFound
	}
	cp := *rec
	s.readouts[rec.DataID] = &cp
	return nil
}

func (s *Storage) GetOracleData(_ context.Context, dataID uuid.UUID) (*models.OracleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.readouts[dataID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Storage) GetOracleDataForMarket(_ context.Context, marketID uuid.UUID) (*models.OracleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.OracleRecord
	for _, rec := range s.readouts {
		if rec.MarketID != marketID {
			continue
		}
		if latest == nil || rec.SubmittedAt.After(latest.SubmittedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// Споры

func (s *Storage) SaveDispute(_ context.Context, rec *models.DisputeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.disputes[rec.DisputeID] = &cp
	return nil
}

func (s *Storage) UpdateDispute(_ context.Context, rec *models.DisputeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.disputes[rec.DisputeID]; !ok {
		return storage.ErrNotFound
	}
	cp := *rec
	s.disputes[rec.DisputeID] = &cp
	return nil
}

func (s *Storage) GetDispute(_ context.Context, disputeID uuid.UUID) (*models.DisputeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.disputes[disputeID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// RunMigrations — схемы нет, мигрировать нечего.
func (s *Storage) RunMigrations(_ context.Context) error { return nil }

func (s *Storage) Close() error { return nil }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
