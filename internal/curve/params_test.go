// internal/curve/params_test.go
package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{
			name:   "valid moderate curve",
			params: Params{InitialPrice: 1000, CurveSteepness: 10000, MaxSupply: 1_000_000, FeeRateBps: 100},
		},
		{
			name:   "zero fee allowed",
			params: Params{InitialPrice: 1, CurveSteepness: 1000, MaxSupply: 1, FeeRateBps: 0},
		},
		{
			name:   "fee at cap allowed",
			params: Params{InitialPrice: 1000, CurveSteepness: 10000, MaxSupply: 1_000_000, FeeRateBps: 1000},
		},
		{
			name:    "fee above cap rejected",
			params:  Params{InitialPrice: 1000, CurveSteepness: 10000, MaxSupply: 1_000_000, FeeRateBps: 1001},
			wantErr: ErrFeeTooHigh,
		},
		{
			name:   "steepness at minimum allowed",
			params: Params{InitialPrice: 1000, CurveSteepness: 1000, MaxSupply: 1_000_000, FeeRateBps: 100},
		},
		{
			name:    "steepness below minimum rejected",
			params:  Params{InitialPrice: 1000, CurveSteepness: 999, MaxSupply: 1_000_000, FeeRateBps: 100},
			wantErr: ErrInvalidCurveParams,
		},
		{
			name:    "zero steepness rejected",
			params:  Params{InitialPrice: 1000, CurveSteepness: 0, MaxSupply: 1_000_000, FeeRateBps: 100},
			wantErr: ErrInvalidCurveParams,
		},
		{
			name:    "zero initial price rejected",
			params:  Params{InitialPrice: 0, CurveSteepness: 10000, MaxSupply: 1_000_000, FeeRateBps: 100},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "zero max supply rejected",
			params:  Params{InitialPrice: 1000, CurveSteepness: 10000, MaxSupply: 0, FeeRateBps: 100},
			wantErr: ErrInvalidMaxSupply,
		},
		{
			name:   "initial price checked before steepness",
			params: Params{InitialPrice: 0, CurveSteepness: 0, MaxSupply: 0, FeeRateBps: 5000},
			// Порядок проверок фиксирован: первой падает цена.
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "steepness checked before max supply",
			params:  Params{InitialPrice: 1, CurveSteepness: 500, MaxSupply: 0, FeeRateBps: 0},
			wantErr: ErrInvalidCurveParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
