package fixed

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of fractional digits carried by every stored quantity.
	Decimals = 6
	// Scale is 10^Decimals.
	Scale uint64 = 1_000_000
	// OneHundredPercent is a Percentage of one whole.
	OneHundredPercent Percentage = Percentage(Scale)
)

// Amount is a token quantity scaled by Scale.
type Amount uint64

// Percentage is a fraction of one scaled by Scale (9_000 is 0.9%).
type Percentage uint64

// FromFloat converts a natural-unit amount into fixed point, truncating digits
// beyond Decimals. Negative, NaN, infinite and out-of-range values report false.
func FromFloat(v float64) (Amount, bool) {
	scaled, ok := shiftTruncate(v, Decimals)
	return Amount(scaled), ok
}

// PercentFromFloat converts a percent value (0.9 for 0.9%) into a Percentage.
func PercentFromFloat(pct float64) (Percentage, bool) {
	scaled, ok := shiftTruncate(pct, Decimals-2)
	return Percentage(scaled), ok
}

func shiftTruncate(v float64, shift int32) (uint64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	scaled := decimal.NewFromFloat(v).Shift(shift).Truncate(0).BigInt()
	if !scaled.IsUint64() {
		return 0, false
	}
	return scaled.Uint64(), true
}

// Float64 returns the amount in natural units.
func (a Amount) Float64() float64 {
	f, _ := a.decimal().Float64()
	return f
}

func (a Amount) String() string {
	return a.decimal().String()
}

func (a Amount) decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -Decimals)
}

// Fraction returns the percentage as a fraction of one (0.009 for 0.9%).
func (p Percentage) Fraction() float64 {
	f, _ := decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(p)), -Decimals).Float64()
	return f
}

func (p Percentage) String() string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(p)), 2-Decimals).String() + "%"
}

// MulDiv returns a*b/d truncated. It reports false when d is zero or the
// quotient does not fit in 64 bits.
func MulDiv(a, b, d uint64) (uint64, bool) {
	if d == 0 {
		return 0, false
	}
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	z.Div(z, uint256.NewInt(d))
	if !z.IsUint64() {
		return 0, false
	}
	return z.Uint64(), true
}

// ProductDivRound returns the product of factors divided by d, rounded half up.
// At most three 64-bit factors are accepted so the product stays within 256 bits.
func ProductDivRound(d uint64, factors ...uint64) (uint64, bool) {
	if d == 0 || len(factors) == 0 || len(factors) > 3 {
		return 0, false
	}
	z := uint256.NewInt(factors[0])
	for _, f := range factors[1:] {
		z.Mul(z, uint256.NewInt(f))
	}
	divisor := uint256.NewInt(d)
	z.Add(z, new(uint256.Int).Rsh(divisor, 1))
	z.Div(z, divisor)
	if !z.IsUint64() {
		return 0, false
	}
	return z.Uint64(), true
}
