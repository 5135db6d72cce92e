// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// ErrNotFound возвращается, когда записи нет в хранилище. Реализации
// обязаны маппить свои not-found ошибки на этот сентинел.
var ErrNotFound = errors.New("storage: record not found")

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Рынки
	SaveMarket(ctx context.Context, rec *models.MarketRecord) error
	UpdateMarket(ctx context.Context, rec *models.MarketRecord) error
	GetMarket(ctx context.Context, marketID uuid.UUID) (*models.MarketRecord, error)
	ListMarkets(ctx context.Context, onlyOpen bool, limit, offset int) ([]*models.MarketRecord, error)

	// Сделки
	SaveTrade(ctx context.Context, trade *models.TradeRecord) error
	ListTrades(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.TradeRecord, error)

	// Данные оракулов
	SaveOracleData(ctx context.Context, rec *models.OracleRecord) error
	UpdateOracleData(ctx context.Context, rec *models.OracleRecord) error
	GetOracleData(ctx context.Context, dataID uuid.UUID) (*models.OracleRecord, error)
	GetOracleDataForMarket(ctx context.Context, marketID uuid.UUID) (*models.OracleRecord, error)

	// Диспуты
	SaveDispute(ctx context.Context, rec *models.DisputeRecord) error
	UpdateDispute(ctx context.Context, rec *models.DisputeRecord) error
	GetDispute(ctx context.Context, disputeID uuid.UUID) (*models.DisputeRecord, error)

	// Миграции
	RunMigrations(ctx context.Context) error
	Close() error
}
