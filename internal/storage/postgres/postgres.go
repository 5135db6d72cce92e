// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/prediction-pump/internal/storage"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/models"
)

// gormLogger реализует интерфейс logger.Interface для GORM
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

// newGormLogger создает новый логгер для GORM
func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

// LogMode реализация интерфейса logger.Interface
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

// Info реализация интерфейса logger.Interface
func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

// Warn реализация интерфейса logger.Interface
func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

// Error реализация интерфейса logger.Interface
func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace реализация интерфейса logger.Interface
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// migrationLockID — ключ advisory-блокировки миграций этого сервиса.
const migrationLockID = 7201

// postgresStorage реализует интерфейс Storage
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Настройка пула соединений
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

// RunMigrations использует GORM AutoMigrate под advisory-блокировкой
func (p *postgresStorage) RunMigrations(ctx context.Context) error {
	// Сначала попробуем получить блокировку
	var lockObtained bool
	err := p.db.WithContext(ctx).Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

	err = p.db.WithContext(ctx).AutoMigrate(
		&models.MarketRecord{},
		&models.TradeRecord{},
		&models.OracleRecord{},
		&models.DisputeRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Реализация методов интерфейса Storage

func (p *postgresStorage) SaveMarket(ctx context.Context, rec *models.MarketRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

// UpdateMarket переписывает изменяемые колонки строки рынка. Кривая и
// описание неизменяемы после создания и в апдейт не входят.
func (p *postgresStorage) UpdateMarket(ctx context.Context, rec *models.MarketRecord) error {
	tx := p.db.WithContext(ctx).Model(&models.MarketRecord{}).
		Where("market_id = ?", rec.MarketID).
		Select("yes_supply", "no_supply", "total_volume", "vault_balance",
			"active", "settled", "winning_outcome", "settled_at",
			"settlement_payout", "settlement_supply", "oracle_data_hash").
		Updates(rec)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *postgresStorage) GetMarket(ctx context.Context, marketID uuid.UUID) (*models.MarketRecord, error) {
	var rec models.MarketRecord
	err := p.db.WithContext(ctx).Where("market_id = ?", marketID).First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (p *postgresStorage) ListMarkets(ctx context.Context, onlyOpen bool, limit, offset int) ([]*models.MarketRecord, error) {
	q := p.db.WithContext(ctx).Order("created_at desc").Limit(limit).Offset(offset)
	if onlyOpen {
		q = q.Where("active = ? AND settled = ?", true, false)
	}
	var recs []*models.MarketRecord
	err := q.Find(&recs).Error
	return recs, err
}

func (p *postgresStorage) SaveTrade(ctx context.Context, trade *models.TradeRecord) error {
	return p.db.WithContext(ctx).Create(trade).Error
}

func (p *postgresStorage) ListTrades(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.TradeRecord, error) {
	var trades []*models.TradeRecord
	err := p.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("executed_at desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

func (p *postgresStorage) SaveOracleData(ctx context.Context, rec *models.OracleRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

// UpdateOracleData фиксирует пометку спора и перезапись показания после
// его разрешения; остальные колонки запечатаны хэшем и не трогаются.
func (p *postgresStorage) UpdateOracleData(ctx context.Context, rec *models.OracleRecord) error {
	tx := p.db.WithContext(ctx).Model(&models.OracleRecord{}).
		Where("data_id = ?", rec.DataID).
		Select("winning_outcome", "data_hash", "disputed").
		Updates(rec)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// notFound маппит gorm-ошибку отсутствия записи на сентинел хранилища.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func (p *postgresStorage) GetOracleData(ctx context.Context, dataID uuid.UUID) (*models.OracleRecord, error) {
	var rec models.OracleRecord
	err := p.db.WithContext(ctx).Where("data_id = ?", dataID).First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (p *postgresStorage) GetOracleDataForMarket(ctx context.Context, marketID uuid.UUID) (*models.OracleRecord, error) {
	var rec models.OracleRecord
	err := p.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("submitted_at desc").
		First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (p *postgresStorage) SaveDispute(ctx context.Context, rec *models.DisputeRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

func (p *postgresStorage) UpdateDispute(ctx context.Context, rec *models.DisputeRecord) error {
	tx := p.db.WithContext(ctx).Model(&models.DisputeRecord{}).
		Where("dispute_id = ?", rec.DisputeID).
		Select("votes", "resolved", "resolution_upheld", "resolution_outcome",
			"resolution_total", "resolution_winning", "resolved_at").
		Updates(rec)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *postgresStorage) GetDispute(ctx context.Context, disputeID uuid.UUID) (*models.DisputeRecord, error) {
	var rec models.DisputeRecord
	err := p.db.WithContext(ctx).Where("dispute_id = ?", disputeID).First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
