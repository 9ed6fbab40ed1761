package fee

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"lppool/internal/fixed"
)

const (
	ModeUniform     = "uniform"
	ModeFixed       = "fixed"
	ModeUtilization = "utilization"
)

// Quote carries the pool figures a selector may price against.
type Quote struct {
	Min             fixed.Percentage
	Max             fixed.Percentage
	BaseReserve     fixed.Amount
	LiquidityTarget fixed.Amount
}

// Selector picks the fee rate charged on a single swap.
type Selector interface {
	Select(q Quote) fixed.Percentage
}

// Uniform samples uniformly from [Min, Max] inclusive and ignores reserves.
type Uniform struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewUniform builds a Uniform selector. A zero seed seeds from the clock.
func NewUniform(seed uint64) *Uniform {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Uniform{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (u *Uniform) Select(q Quote) fixed.Percentage {
	if q.Max <= q.Min {
		return q.Min
	}
	span := uint64(q.Max-q.Min) + 1
	u.mu.Lock()
	n := u.rng.Uint64N(span)
	u.mu.Unlock()
	return q.Min + fixed.Percentage(n)
}

// Fixed always charges Rate, clamped into the quoted bounds.
type Fixed struct {
	Rate fixed.Percentage
}

func (f Fixed) Select(q Quote) fixed.Percentage {
	return Clamp(f.Rate, q.Min, q.Max)
}

// Utilization charges Min while the base reserve sits at or above the
// liquidity target and rises linearly to Max as the reserve drains to zero.
type Utilization struct{}

func (Utilization) Select(q Quote) fixed.Percentage {
	if q.LiquidityTarget == 0 || q.BaseReserve >= q.LiquidityTarget || q.Max <= q.Min {
		return q.Min
	}
	shortfall := uint64(q.LiquidityTarget - q.BaseReserve)
	extra, ok := fixed.MulDiv(uint64(q.Max-q.Min), shortfall, uint64(q.LiquidityTarget))
	if !ok {
		return q.Max
	}
	return q.Min + fixed.Percentage(extra)
}

// Clamp bounds rate to [lo, hi].
func Clamp(rate, lo, hi fixed.Percentage) fixed.Percentage {
	if rate < lo {
		return lo
	}
	if rate > hi {
		return hi
	}
	return rate
}

// NewSelector builds a selector from its configured mode name.
func NewSelector(mode string, seed uint64, fixedRate fixed.Percentage) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeUniform:
		return NewUniform(seed), nil
	case ModeFixed:
		return Fixed{Rate: fixedRate}, nil
	case ModeUtilization:
		return Utilization{}, nil
	default:
		return nil, fmt.Errorf("unknown fee mode: %s", mode)
	}
}
