// internal/license/license_test.go
package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBasicValidator(t *testing.T) {
	v := NewBasicValidator(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, v.Validate(ctx, "PREDPUMP-XXXX-YYYY"))

	assert.ErrorIs(t, v.Validate(ctx, ""), ErrMissingKey)
	assert.ErrorIs(t, v.Validate(ctx, "short"), ErrKeyTooShort)
}

func TestMaskKey(t *testing.T) {
	// Короткие ключи прячутся целиком, длинные показывают только префикс.
	assert.Equal(t, "*****", maskKey("12345"))
	assert.Equal(t, "PREDPUMP...", maskKey("PREDPUMP-XXXX-YYYY"))
	assert.NotContains(t, maskKey("PREDPUMP-XXXX-YYYY"), "YYYY")
}
