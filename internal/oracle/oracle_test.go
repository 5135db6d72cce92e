// internal/oracle/oracle_test.go
package oracle

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/prediction-pump/internal/market"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry("authority", 3)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), r.ConsensusThreshold)
	assert.Empty(t, r.Providers)

	_, err = NewRegistry("authority", 0)
	assert.ErrorIs(t, err, ErrInvalidConsensus)

	_, err = NewRegistry("authority", 11)
	assert.ErrorIs(t, err, ErrInvalidConsensus)

	_, err = NewRegistry("authority", 10)
	assert.NoError(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("pyth-sol-usd", TypePyth, 9500)
	require.NoError(t, err)
	assert.True(t, p.Active, "new providers start active")
	assert.Equal(t, uint16(9500), p.Reliability)

	_, err = NewProvider("p", TypeCustom, MaxScore)
	assert.NoError(t, err)

	_, err = NewProvider("p", TypeCustom, MaxScore+1)
	assert.ErrorIs(t, err, ErrInvalidReliability)

	_, err = NewProvider("p", ProviderType("band"), 100)
	assert.ErrorIs(t, err, ErrUnknownProviderType)
}

func TestRegistryAdd(t *testing.T) {
	r, err := NewRegistry("authority", 1)
	require.NoError(t, err)

	p, err := NewProvider("pyth-sol-usd", TypePyth, 9000)
	require.NoError(t, err)
	require.NoError(t, r.Add(p))

	// Повторная регистрация того же ID отклоняется.
	assert.ErrorIs(t, r.Add(p), ErrProviderExists)

	for i := 1; i < MaxProviders; i++ {
		extra, err := NewProvider(fmt.Sprintf("custom-%d", i), TypeCustom, 5000)
		require.NoError(t, err)
		require.NoError(t, r.Add(extra))
	}

	overflow, err := NewProvider("one-too-many", TypeCustom, 5000)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Add(overflow), ErrTooManyProviders)
}

func TestRegistryFallback(t *testing.T) {
	r, err := NewRegistry("authority", 2)
	require.NoError(t, err)

	add := func(id string, reliability uint16) {
		p, err := NewProvider(id, TypeCustom, reliability)
		require.NoError(t, err)
		require.NoError(t, r.Add(p))
	}
	add("primary", 9900)
	add("backup-low", 4000)
	add("backup-high", 8000)

	best, err := r.Fallback("primary")
	require.NoError(t, err)
	assert.Equal(t, "backup-high", best.ID)

	// Деактивированный провайдер не участвует в выборе.
	r.Providers[2].Deactivate()
	best, err = r.Fallback("primary")
	require.NoError(t, err)
	assert.Equal(t, "backup-low", best.ID)
	assert.Len(t, r.ActiveProviders(), 2)

	r.Providers[1].Deactivate()
	_, err = r.Fallback("primary")
	assert.ErrorIs(t, err, ErrNoFallback)
}

func TestNewData(t *testing.T) {
	id := uuid.New()

	d, err := NewData(id, "pyth-sol-usd", market.OutcomeYes, 9800)
	require.NoError(t, err)
	assert.Equal(t, id, d.MarketID)
	assert.False(t, d.Disputed)
	assert.True(t, d.VerifyIntegrity())

	_, err = NewData(id, "pyth-sol-usd", market.OutcomeYes, MaxScore+1)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestDataIntegrity(t *testing.T) {
	d, err := NewData(uuid.New(), "provider", market.OutcomeNo, 7000)
	require.NoError(t, err)
	require.True(t, d.VerifyIntegrity())

	tampered := *d
	tampered.WinningOutcome = market.OutcomeYes
	assert.False(t, tampered.VerifyIntegrity(), "flipping the outcome must break the hash")

	tampered = *d
	tampered.ConfidenceScore = 1
	assert.False(t, tampered.VerifyIntegrity())

	// Метка времени в хэш не входит.
	aged := *d
	aged.Timestamp = aged.Timestamp.Add(-24 * time.Hour)
	assert.True(t, aged.VerifyIntegrity())
}

func TestDataMarkDisputed(t *testing.T) {
	d, err := NewData(uuid.New(), "provider", market.OutcomeYes, 9000)
	require.NoError(t, err)

	require.NoError(t, d.MarkDisputed())
	assert.True(t, d.Disputed)
	assert.ErrorIs(t, d.MarkDisputed(), ErrAlreadyDisputed)
}

func TestDataOverrideReseals(t *testing.T) {
	d, err := NewData(uuid.New(), "provider", market.OutcomeYes, 9000)
	require.NoError(t, err)
	require.NoError(t, d.MarkDisputed())

	d.Override(market.OutcomeNo)
	assert.Equal(t, market.OutcomeNo, d.WinningOutcome)
	assert.False(t, d.Disputed)
	assert.True(t, d.VerifyIntegrity(), "override must reseal the hash")
}
