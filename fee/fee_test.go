package fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBTCSizeAndFee(t *testing.T) {
	assert.Equal(t, 258, BTCSize(1, 2))
	assert.Equal(t, 472, BTCSize(2, 3))

	assert.Equal(t, uint64(2580), BTCFee(1, 2, decimal.NewFromInt(10)))
	// 258 * 1.5 = 387
	assert.Equal(t, uint64(387), BTCFee(1, 2, decimal.RequireFromString("1.5")))
	// 258 * 1.01 = 260.58 -> 261
	assert.Equal(t, uint64(261), BTCFee(1, 2, decimal.RequireFromString("1.01")))
}

func TestCapRate(t *testing.T) {
	tests := []struct {
		name   string
		amount uint64
		rate   string
		want   string
	}{
		{"fee small relative to amount", 100_000, "10", "10"},
		{"fee over half halves rate", 4_000, "20", "10"},
		{"floor at one", 100, "1", "1"},
		{"halving keeps fraction", 100, "3", "1.5"},
		{"halving below one clamps", 100, "1.6", "1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CapRate(1, 2, tc.amount, decimal.RequireFromString(tc.rate))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestNativePolicy(t *testing.T) {
	p := NativePolicy{FlatFee: 80, RatePerKB: 100}
	assert.Equal(t, uint64(80), p.Fee(226))
	assert.Equal(t, uint64(80), p.Fee(999))
	assert.Equal(t, uint64(100), p.Fee(1000))
	assert.Equal(t, uint64(251), p.Fee(2501))

	assert.Equal(t, DefaultNativeFlatFee, NativePolicy{}.Fee(10))
}

func TestResidual(t *testing.T) {
	f, err := Residual(100_000, 99_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), f)

	_, err = Residual(1, 2)
	assert.ErrorIs(t, err, ErrNegativeFee)
}

func TestNewInfo(t *testing.T) {
	info := NewInfo(1000, 300, 0)
	assert.Equal(t, 300, info.TxVsize)
	assert.Equal(t, "3.33", info.FeeRate.StringFixed(2))

	segwit := NewInfo(1000, 300, 661)
	assert.Equal(t, 166, segwit.TxVsize)
	assert.Equal(t, "6.02", segwit.FeeRate.StringFixed(2))
}

func TestBTCInputFee(t *testing.T) {
	assert.Equal(t, uint64(1800), BTCInputFee(decimal.NewFromInt(10)))
	assert.Equal(t, uint64(270), BTCInputFee(decimal.RequireFromString("1.5")))
}
