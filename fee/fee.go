// Package fee computes transaction fees for both fee models the wallet
// supports: size times rate for Bitcoin-style transactions, and a tiered
// schedule for the native chain.
package fee

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Bitcoin-style size model, in bytes.
const (
	BTCInputSize  = 180
	BTCOutputSize = 34
	BTCOverhead   = 10
)

// DustLimit is the smallest change output worth creating. Change equal to or
// below it is left to the miner.
const DustLimit = uint64(546)

// Native fee schedule defaults.
const (
	// NativeSmallTxSize is the size below which the flat fee applies.
	NativeSmallTxSize = 1000
	// DefaultNativeFlatFee is the fee for transactions under NativeSmallTxSize.
	DefaultNativeFlatFee = uint64(80)
	// DefaultNativeRatePerKB is the per-kilobyte rate above NativeSmallTxSize.
	DefaultNativeRatePerKB = uint64(80)
)

// ErrNegativeFee indicates outputs exceed inputs.
var ErrNegativeFee = errors.New("fee: outputs exceed inputs")

var (
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
	half = decimal.NewFromFloat(0.5)
)

// BTCSize estimates a Bitcoin-style transaction size.
func BTCSize(inputs, outputs int) int {
	return inputs*BTCInputSize + outputs*BTCOutputSize + BTCOverhead
}

// BTCFee returns ceil(BTCSize(inputs, outputs) * rate).
func BTCFee(inputs, outputs int, rate decimal.Decimal) uint64 {
	return ceilUnits(decimal.NewFromInt(int64(BTCSize(inputs, outputs))).Mul(rate))
}

// BTCInputFee is the marginal fee of one more input at rate.
func BTCInputFee(rate decimal.Decimal) uint64 {
	return ceilUnits(decimal.NewFromInt(BTCInputSize).Mul(rate))
}

// CapRate applies the safety rule: when the fee at rate would exceed half of
// amount, the rate is halved, never going below 1 sat/byte.
func CapRate(inputs, outputs int, amount uint64, rate decimal.Decimal) decimal.Decimal {
	f := decimal.NewFromInt(int64(BTCFee(inputs, outputs, rate)))
	if f.GreaterThan(decimal.NewFromInt(int64(amount)).Mul(half)) {
		return decimal.Max(rate.Div(two), one)
	}
	return rate
}

// NativePolicy is the tiered native-chain fee schedule.
type NativePolicy struct {
	FlatFee   uint64 // below NativeSmallTxSize
	RatePerKB uint64 // at or above NativeSmallTxSize
}

// DefaultNativePolicy returns the built-in schedule.
func DefaultNativePolicy() NativePolicy {
	return NativePolicy{FlatFee: DefaultNativeFlatFee, RatePerKB: DefaultNativeRatePerKB}
}

// Fee returns the fee for a transaction of size bytes.
func (p NativePolicy) Fee(size int) uint64 {
	flat := p.FlatFee
	if flat == 0 {
		flat = DefaultNativeFlatFee
	}
	if size < NativeSmallTxSize {
		return flat
	}
	rate := p.RatePerKB
	if rate == 0 {
		rate = DefaultNativeRatePerKB
	}
	f := (uint64(size)*rate + 999) / 1000
	if f < flat {
		return flat
	}
	return f
}

// NativeSize estimates a native P2PKH transaction size.
func NativeSize(inputs, outputs int) int {
	// version(4) + locktime(4) + counts(2), 148 per P2PKH input, 34 per output
	return 10 + inputs*148 + outputs*34
}

// Residual returns inputs - outputs, the fee implied by a finished transaction.
func Residual(inputs, outputs uint64) (uint64, error) {
	if outputs > inputs {
		return 0, fmt.Errorf("%w: in %d, out %d", ErrNegativeFee, inputs, outputs)
	}
	return inputs - outputs, nil
}

// Info describes the fee of a built transaction.
type Info struct {
	Fee     uint64          `json:"fee"`
	FeeRate decimal.Decimal `json:"feeRate"` // smallest units per vbyte, 2 decimals
	TxSize  int             `json:"txSize"`
	TxVsize int             `json:"txVsize"`
}

// NewInfo builds an Info. weight is the BIP141 weight; pass 0 for
// non-segwit transactions, whose vsize equals their size.
func NewInfo(f uint64, size, weight int) Info {
	vsize := size
	if weight > 0 {
		vsize = (weight + 3) / 4
	}
	info := Info{Fee: f, TxSize: size, TxVsize: vsize, FeeRate: decimal.Zero}
	if vsize > 0 {
		info.FeeRate = decimal.NewFromInt(int64(f)).
			Div(decimal.NewFromInt(int64(vsize))).
			Round(2)
	}
	return info
}

func ceilUnits(d decimal.Decimal) uint64 {
	c := d.Ceil()
	if c.IsNegative() {
		return 0
	}
	return uint64(c.IntPart())
}
