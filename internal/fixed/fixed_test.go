package fixed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromFloat(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want Amount
		ok   bool
	}{
		{name: "whole", in: 100, want: 100_000_000, ok: true},
		{name: "fraction", in: 1.5, want: 1_500_000, ok: true},
		{name: "decimal digits survive", in: 109.9991, want: 109_999_100, ok: true},
		{name: "truncates beyond scale", in: 0.0000019, want: 1, ok: true},
		{name: "zero", in: 0, want: 0, ok: true},
		{name: "negative", in: -1, ok: false},
		{name: "nan", in: math.NaN(), ok: false},
		{name: "inf", in: math.Inf(1), ok: false},
		{name: "overflow", in: 1e20, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FromFloat(tc.in)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestPercentFromFloat(t *testing.T) {
	p, ok := PercentFromFloat(0.9)
	require.True(t, ok)
	require.Equal(t, Percentage(9_000), p)
	require.Equal(t, "0.9%", p.String())
	require.InDelta(t, 0.009, p.Fraction(), 1e-12)

	p, ok = PercentFromFloat(100)
	require.True(t, ok)
	require.Equal(t, OneHundredPercent, p)

	_, ok = PercentFromFloat(-0.1)
	require.False(t, ok)
}

func TestAmountFloat64(t *testing.T) {
	require.Equal(t, 8.19, Amount(8_190_000).Float64())
	require.Equal(t, "0.000001", Amount(1).String())
}

func TestMulDiv(t *testing.T) {
	got, ok := MulDiv(10_000_000, 100_000_000, 91_000_000)
	require.True(t, ok)
	require.Equal(t, uint64(10_989_010), got)

	// intermediate product exceeds 64 bits
	got, ok = MulDiv(math.MaxUint64, 4, 8)
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxUint64/2), got)

	_, ok = MulDiv(1, 1, 0)
	require.False(t, ok)

	_, ok = MulDiv(math.MaxUint64, 2, 1)
	require.False(t, ok)
}

func TestProductDivRound(t *testing.T) {
	// 6.0 * 1.5 * (1 - 0.9%) = 8.919
	got, ok := ProductDivRound(Scale*Scale, 6_000_000, 1_500_000, 991_000)
	require.True(t, ok)
	require.Equal(t, uint64(8_919_000), got)

	got, ok = ProductDivRound(2, 3)
	require.True(t, ok)
	require.Equal(t, uint64(2), got)

	got, ok = ProductDivRound(3, 4)
	require.True(t, ok)
	require.Equal(t, uint64(1), got)

	_, ok = ProductDivRound(0, 1)
	require.False(t, ok)
	_, ok = ProductDivRound(1)
	require.False(t, ok)
}
