// internal/market/market_test.go
package market

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/prediction-pump/internal/curve"
)

func validParams() curve.Params {
	return curve.Params{
		InitialPrice:   1000,
		CurveSteepness: 10000,
		MaxSupply:      1_000_000,
		FeeRateBps:     100,
	}
}

func newTestMarket(t *testing.T) *Market {
	t.Helper()
	m, err := New(
		"creator-wallet",
		"Will SOL close above $500 on 2026-12-31?",
		time.Now().Add(30*24*time.Hour),
		"oracle-provider",
		[]string{"mint-yes", "mint-no"},
		validParams(),
	)
	require.NoError(t, err)
	return m
}

func TestNewMarket(t *testing.T) {
	m := newTestMarket(t)

	assert.NotEqual(t, [16]byte{}, [16]byte(m.ID))
	assert.False(t, m.Status.Active, "markets start inactive until seeded")
	assert.False(t, m.Status.Settled)
	assert.Zero(t, m.TotalVolume)
	assert.Equal(t, OutcomeYes, m.Outcomes[0].Side)
	assert.Equal(t, OutcomeNo, m.Outcomes[1].Side)
	assert.Zero(t, m.Outcomes[0].Supply)
}

func TestNewMarketValidation(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	mints := []string{"mint-yes", "mint-no"}

	t.Run("description too long", func(t *testing.T) {
		_, err := New("c", strings.Repeat("x", MaxDescriptionLen+1), future, "o", mints, validParams())
		assert.ErrorIs(t, err, ErrDescriptionTooLong)
	})

	t.Run("resolution date in the past", func(t *testing.T) {
		_, err := New("c", "d", time.Now().Add(-time.Hour), "o", mints, validParams())
		assert.ErrorIs(t, err, ErrInvalidResolutionDate)
	})

	t.Run("one outcome", func(t *testing.T) {
		_, err := New("c", "d", future, "o", []string{"mint-yes"}, validParams())
		assert.ErrorIs(t, err, ErrInsufficientOutcomes)
	})

	t.Run("three outcomes", func(t *testing.T) {
		_, err := New("c", "d", future, "o", []string{"a", "b", "c"}, validParams())
		assert.ErrorIs(t, err, ErrTooManyOutcomes)
	})

	t.Run("bad curve params", func(t *testing.T) {
		p := validParams()
		p.CurveSteepness = 999
		_, err := New("c", "d", future, "o", mints, p)
		assert.ErrorIs(t, err, curve.ErrInvalidCurveParams)
	})
}

func TestActivate(t *testing.T) {
	m := newTestMarket(t)

	err := m.Activate(MinimumLiquidityThreshold - 1)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	assert.False(t, m.Status.Active)

	require.NoError(t, m.Activate(MinimumLiquidityThreshold))
	assert.True(t, m.Status.Active)

	assert.ErrorIs(t, m.Activate(MinimumLiquidityThreshold), ErrMarketAlreadyActive)
}

func TestCanTrade(t *testing.T) {
	m := newTestMarket(t)

	assert.ErrorIs(t, m.CanTrade(), ErrMarketNotActive)

	require.NoError(t, m.Activate(MinimumLiquidityThreshold))
	assert.NoError(t, m.CanTrade())

	m.ResolutionDate = time.Now().Add(-time.Minute)
	assert.ErrorIs(t, m.CanTrade(), ErrTradingClosed)

	m.ResolutionDate = time.Now().Add(time.Hour)
	m.Status.Settled = true
	assert.ErrorIs(t, m.CanTrade(), ErrMarketSettled)
}

func TestApplyBuyAndSell(t *testing.T) {
	m := newTestMarket(t)
	require.NoError(t, m.Activate(MinimumLiquidityThreshold))

	require.NoError(t, m.ApplyBuy(OutcomeYes, 10_000, 25_250_000))
	assert.Equal(t, uint64(10_000), m.Outcomes[OutcomeYes].Supply)
	assert.Zero(t, m.Outcomes[OutcomeNo].Supply)
	assert.Equal(t, uint64(25_250_000), m.TotalVolume)

	require.NoError(t, m.ApplySell(OutcomeYes, 4_000, 9_000_000))
	assert.Equal(t, uint64(6_000), m.Outcomes[OutcomeYes].Supply)
	// Объём считает оборот, продажи тоже добавляются.
	assert.Equal(t, uint64(34_250_000), m.TotalVolume)
}

func TestApplySellBeyondSupply(t *testing.T) {
	m := newTestMarket(t)

	err := m.ApplySell(OutcomeNo, 1, 100)
	assert.ErrorIs(t, err, curve.ErrMathOverflow)
	assert.Zero(t, m.TotalVolume, "failed sell must not change the record")
}

func TestApplyTradeUnknownOutcome(t *testing.T) {
	m := newTestMarket(t)

	assert.ErrorIs(t, m.ApplyBuy(Outcome(7), 1, 1), ErrUnknownOutcome)
	assert.ErrorIs(t, m.ApplyBuy(OutcomeUphold, 1, 1), ErrUnknownOutcome)
}

func TestMature(t *testing.T) {
	m := newTestMarket(t)
	assert.False(t, m.Mature())

	m.TotalVolume = MinimumTradingVolume
	assert.True(t, m.Mature())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "YES", OutcomeYes.String())
	assert.Equal(t, "NO", OutcomeNo.String())
	assert.Equal(t, "UPHOLD", OutcomeUphold.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
