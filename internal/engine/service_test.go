// internal/engine/service_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
	"github.com/rovshanmuradov/prediction-pump/internal/events"
	"github.com/rovshanmuradov/prediction-pump/internal/market"
	"github.com/rovshanmuradov/prediction-pump/internal/storage/memory"
)

func testParams() curve.Params {
	return curve.Params{
		InitialPrice:   1000,
		CurveSteepness: 10000,
		MaxSupply:      1_000_000,
		FeeRateBps:     100,
	}
}

func newTestService(t *testing.T) (*Service, *memory.Storage) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 64)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})

	store := memory.New()
	svc, err := NewService(ServiceConfig{
		Logger:  logger,
		Storage: store,
		Bus:     bus,
	})
	require.NoError(t, err)
	return svc, store
}

func createRequest() CreateMarketRequest {
	return CreateMarketRequest{
		Creator:        "5Zzguz4NsSRFxGkHfM4FmsFpGZiCDtY72zH2jzMcqkJx",
		Description:    "BTC above 100k by March?",
		ResolutionDate: time.Now().Add(30 * 24 * time.Hour),
		OracleSource:   "pyth-main",
		OutcomeMints:   []string{"So11111111111111111111111111111111111111112", "So11111111111111111111111111111111111111113"},
		Params:         testParams(),
	}
}

func activeMarket(t *testing.T, svc *Service) *market.Market {
	t.Helper()
	ctx := context.Background()
	m, err := svc.CreateMarket(ctx, createRequest())
	require.NoError(t, err)
	_, err = svc.ActivateMarket(ctx, m.ID, market.MinimumLiquidityThreshold)
	require.NoError(t, err)
	return m
}

func TestNewServiceValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 8)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	_, err := NewService(ServiceConfig{Storage: memory.New(), Bus: bus})
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{Logger: logger, Bus: bus})
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{Logger: logger, Storage: memory.New()})
	assert.Error(t, err)

	svc, err := NewService(ServiceConfig{Logger: logger, Storage: memory.New(), Bus: bus})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestCreateMarket(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMarket(ctx, createRequest())
	require.NoError(t, err)

	assert.False(t, m.Status.Active, "новый рынок не активен до посевной ликвидности")
	assert.Equal(t, "pyth-main", m.OracleSource)

	rec, err := store.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rec.VaultBalance)
	assert.False(t, rec.Active)
}

func TestCreateMarketValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := createRequest()
	req.Params.CurveSteepness = 999
	_, err := svc.CreateMarket(ctx, req)
	assert.ErrorIs(t, err, curve.ErrInvalidCurveParams)

	req = createRequest()
	req.ResolutionDate = time.Now().Add(-time.Hour)
	_, err = svc.CreateMarket(ctx, req)
	assert.ErrorIs(t, err, market.ErrInvalidResolutionDate)
}

func TestActivateMarket(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	m, err := svc.CreateMarket(ctx, createRequest())
	require.NoError(t, err)

	_, err = svc.ActivateMarket(ctx, m.ID, market.MinimumLiquidityThreshold-1)
	assert.ErrorIs(t, err, market.ErrInsufficientLiquidity)

	activated, err := svc.ActivateMarket(ctx, m.ID, market.MinimumLiquidityThreshold)
	require.NoError(t, err)
	assert.True(t, activated.Status.Active)

	rec, err := store.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, market.MinimumLiquidityThreshold, rec.VaultBalance, "посевная ликвидность зачисляется в хранилище")

	_, err = svc.ActivateMarket(ctx, m.ID, market.MinimumLiquidityThreshold)
	assert.ErrorIs(t, err, market.ErrMarketAlreadyActive)
}

func TestGetMarketNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.GetMarket(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestListMarkets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateMarket(ctx, createRequest())
	require.NoError(t, err)
	second, err := svc.CreateMarket(ctx, createRequest())
	require.NoError(t, err)
	_, err = svc.ActivateMarket(ctx, second.ID, market.MinimumLiquidityThreshold)
	require.NoError(t, err)

	all, err := svc.ListMarkets(ctx, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := svc.ListMarkets(ctx, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
	assert.NotEqual(t, first.ID, open[0].ID)
}
