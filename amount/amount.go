// Package amount converts between human decimal amounts and integer
// smallest units (satoshis for BTC, micro-TBC for TBC, token units for FTs).
package amount

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals for the native coins.
const (
	TBCDecimals = 6
	BTCDecimals = 8

	// MaxFTDecimals bounds the token precision accepted from FT metadata.
	MaxFTDecimals = 18
)

var (
	// ErrNonPositive indicates a zero or negative amount.
	ErrNonPositive = errors.New("amount: must be positive")

	// ErrTooPrecise indicates more fractional digits than the unit supports.
	ErrTooPrecise = errors.New("amount: too many decimal places")

	// ErrOverflow indicates the amount does not fit in uint64 smallest units.
	ErrOverflow = errors.New("amount: overflows uint64")

	// ErrInvalidDecimals indicates an unsupported precision.
	ErrInvalidDecimals = errors.New("amount: invalid decimals")
)

var maxUint64 = decimal.RequireFromString("18446744073709551615")

// ToUnits converts a human amount string ("0.5") into smallest units.
func ToUnits(human string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return 0, fmt.Errorf("amount: parse %q: %w", human, err)
	}
	return DecimalToUnits(d, decimals)
}

// DecimalToUnits converts a decimal human amount into smallest units.
func DecimalToUnits(d decimal.Decimal, decimals int32) (uint64, error) {
	if decimals < 0 || decimals > MaxFTDecimals {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrNonPositive, d.String())
	}
	units := d.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d", ErrTooPrecise, d.String(), decimals)
	}
	if units.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return units.BigInt().Uint64(), nil
}

// FromUnits converts smallest units back into a human decimal.
func FromUnits(units uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -decimals)
}

// String formats smallest units as a human string with trailing zeros trimmed.
func String(units uint64, decimals int32) string {
	return FromUnits(units, decimals).String()
}
