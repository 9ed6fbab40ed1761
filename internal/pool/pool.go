package pool

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"lppool/internal/fee"
	"lppool/internal/fixed"
	"lppool/internal/model"
)

var (
	// ErrInvalidInput is returned when a strictly positive amount is required.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientLiquidity is returned when a withdrawal or swap payout exceeds the pool's backing.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidFeeBounds is returned when minFee > maxFee or maxFee exceeds 100%.
	ErrInvalidFeeBounds = errors.New("invalid fee bounds")
	// ErrInvalidState is returned when a restored snapshot breaks the reserve invariants.
	ErrInvalidState = errors.New("invalid pool state")
)

// Config holds the immutable pool parameters.
type Config struct {
	Price           fixed.Amount
	MinFee          fixed.Percentage
	MaxFee          fixed.Percentage
	LiquidityTarget fixed.Amount
}

// NewConfig converts natural-unit parameters into a Config. Fees are percent
// values, so 0.9 means 0.9%.
func NewConfig(price, minFeePct, maxFeePct, liquidityTarget float64) (Config, error) {
	p, ok := fixed.FromFloat(price)
	if !ok {
		return Config{}, fmt.Errorf("price %v: %w", price, ErrInvalidInput)
	}
	minFee, ok := fixed.PercentFromFloat(minFeePct)
	if !ok {
		return Config{}, fmt.Errorf("min fee %v: %w", minFeePct, ErrInvalidInput)
	}
	maxFee, ok := fixed.PercentFromFloat(maxFeePct)
	if !ok {
		return Config{}, fmt.Errorf("max fee %v: %w", maxFeePct, ErrInvalidInput)
	}
	target, ok := fixed.FromFloat(liquidityTarget)
	if !ok {
		return Config{}, fmt.Errorf("liquidity target %v: %w", liquidityTarget, ErrInvalidInput)
	}
	return Config{Price: p, MinFee: minFee, MaxFee: maxFee, LiquidityTarget: target}, nil
}

func (c Config) validate() error {
	if c.MinFee > c.MaxFee {
		return fmt.Errorf("min fee %s above max fee %s: %w", c.MinFee, c.MaxFee, ErrInvalidFeeBounds)
	}
	if c.MaxFee > fixed.OneHundredPercent {
		return fmt.Errorf("max fee %s above 100%%: %w", c.MaxFee, ErrInvalidFeeBounds)
	}
	return nil
}

// Pool is the ledger of a single staked-token/base-token liquidity pool.
// All methods are safe for concurrent use; each operation runs under one lock.
type Pool struct {
	mu sync.Mutex

	price           fixed.Amount
	liquidityTarget fixed.Amount
	minFee          fixed.Percentage
	maxFee          fixed.Percentage

	baseReserve   fixed.Amount
	stakedReserve fixed.Amount
	lpSupply      fixed.Amount

	selector fee.Selector
	logger   *zap.Logger
}

// Withdrawal is the payout of a RemoveLiquidity call.
type Withdrawal struct {
	Base   fixed.Amount
	Staked fixed.Amount
}

// SwapResult describes a committed swap. Gross is the pre-fee value truncated,
// Net is the amount actually paid out.
type SwapResult struct {
	FeeRate fixed.Percentage
	Gross   fixed.Amount
	Net     fixed.Amount
}

// New creates an empty pool. A nil selector samples fees uniformly at random.
func New(cfg Config, selector fee.Selector, logger *zap.Logger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if selector == nil {
		selector = fee.NewUniform(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		price:           cfg.Price,
		liquidityTarget: cfg.LiquidityTarget,
		minFee:          cfg.MinFee,
		maxFee:          cfg.MaxFee,
		selector:        selector,
		logger:          logger,
	}, nil
}

// Restore rebuilds a pool from a snapshot taken with State.
func Restore(state model.PoolState, selector fee.Selector, logger *zap.Logger) (*Pool, error) {
	p, err := New(Config{
		Price:           fixed.Amount(state.Price),
		MinFee:          fixed.Percentage(state.MinFee),
		MaxFee:          fixed.Percentage(state.MaxFee),
		LiquidityTarget: fixed.Amount(state.LiquidityTarget),
	}, selector, logger)
	if err != nil {
		return nil, err
	}

	empty := state.BaseReserve == 0 && state.StakedReserve == 0
	if (state.LpSupply == 0) != empty {
		return nil, fmt.Errorf("lp supply %d with reserves %d/%d: %w",
			state.LpSupply, state.BaseReserve, state.StakedReserve, ErrInvalidState)
	}

	p.baseReserve = fixed.Amount(state.BaseReserve)
	p.stakedReserve = fixed.Amount(state.StakedReserve)
	p.lpSupply = fixed.Amount(state.LpSupply)
	return p, nil
}

// State returns a snapshot of every ledger field.
func (p *Pool) State() model.PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Pool) stateLocked() model.PoolState {
	return model.PoolState{
		Price:           uint64(p.price),
		BaseReserve:     uint64(p.baseReserve),
		StakedReserve:   uint64(p.stakedReserve),
		LpSupply:        uint64(p.lpSupply),
		LiquidityTarget: uint64(p.liquidityTarget),
		MinFee:          uint64(p.minFee),
		MaxFee:          uint64(p.maxFee),
	}
}

// AddLiquidity deposits amount base tokens and returns the LP amount minted.
func (p *Pool) AddLiquidity(amount float64) (float64, error) {
	a, ok := fixed.FromFloat(amount)
	if !ok {
		return 0, ErrInvalidInput
	}
	minted, err := p.AddLiquidityFixed(a)
	if err != nil {
		return 0, err
	}
	return minted.Float64(), nil
}

// AddLiquidityFixed is AddLiquidity in fixed-point units. The first deposit
// mints 1:1; later deposits mint amount * lpSupply / baseReserve. The ratio
// ignores the staked reserve, so shares minted at different times hold
// different claims on it.
func (p *Pool) AddLiquidityFixed(amount fixed.Amount) (fixed.Amount, error) {
	if amount == 0 {
		return 0, ErrInvalidInput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	minted := amount
	if p.lpSupply > 0 {
		if p.baseReserve == 0 {
			// every share is backed by staked token only; no base ratio to mint against
			return 0, ErrInsufficientLiquidity
		}
		// a mint that truncates to zero still deposits the base tokens
		m, ok := fixed.MulDiv(uint64(amount), uint64(p.lpSupply), uint64(p.baseReserve))
		if !ok {
			return 0, ErrInvalidInput
		}
		minted = fixed.Amount(m)
	}

	base, ok := checkedAdd(p.baseReserve, amount)
	if !ok {
		return 0, ErrInvalidInput
	}
	supply, ok := checkedAdd(p.lpSupply, minted)
	if !ok {
		return 0, ErrInvalidInput
	}

	p.baseReserve = base
	p.lpSupply = supply

	p.logger.Debug("add liquidity",
		zap.Stringer("amount", amount),
		zap.Stringer("minted", minted),
		zap.Stringer("base_reserve", p.baseReserve),
		zap.Stringer("lp_supply", p.lpSupply),
	)
	return minted, nil
}

// RemoveLiquidity burns lpAmount shares and returns the base and staked
// amounts paid out.
func (p *Pool) RemoveLiquidity(lpAmount float64) (float64, float64, error) {
	lp, ok := fixed.FromFloat(lpAmount)
	if !ok {
		return 0, 0, ErrInsufficientLiquidity
	}
	w, err := p.RemoveLiquidityFixed(lp)
	if err != nil {
		return 0, 0, err
	}
	return w.Base.Float64(), w.Staked.Float64(), nil
}

// RemoveLiquidityFixed is RemoveLiquidity in fixed-point units. Each reserve
// pays out reserve * lpAmount / lpSupply, truncated.
func (p *Pool) RemoveLiquidityFixed(lpAmount fixed.Amount) (Withdrawal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if lpAmount == 0 || lpAmount > p.lpSupply {
		return Withdrawal{}, ErrInsufficientLiquidity
	}

	// lpAmount <= lpSupply keeps both quotients within their reserves.
	base, _ := fixed.MulDiv(uint64(p.baseReserve), uint64(lpAmount), uint64(p.lpSupply))
	staked, _ := fixed.MulDiv(uint64(p.stakedReserve), uint64(lpAmount), uint64(p.lpSupply))
	w := Withdrawal{Base: fixed.Amount(base), Staked: fixed.Amount(staked)}

	p.baseReserve = mustSub("base reserve", p.baseReserve, w.Base)
	p.stakedReserve = mustSub("staked reserve", p.stakedReserve, w.Staked)
	p.lpSupply = mustSub("lp supply", p.lpSupply, lpAmount)

	p.logger.Debug("remove liquidity",
		zap.Stringer("lp_amount", lpAmount),
		zap.Stringer("base", w.Base),
		zap.Stringer("staked", w.Staked),
		zap.Stringer("lp_supply", p.lpSupply),
	)
	return w, nil
}

// Swap sells stakedAmount staked tokens to the pool and returns the base
// tokens received.
func (p *Pool) Swap(stakedAmount float64) (float64, error) {
	s, ok := fixed.FromFloat(stakedAmount)
	if !ok {
		return 0, ErrInvalidInput
	}
	res, err := p.SwapFixed(s)
	if err != nil {
		return 0, err
	}
	return res.Net.Float64(), nil
}

// SwapFixed is Swap in fixed-point units. The payout is
// stakedAmount * price * (1 - feeRate), rounded to the nearest unit. A payout
// that rounds to zero still commits the staked tokens.
func (p *Pool) SwapFixed(stakedAmount fixed.Amount) (SwapResult, error) {
	if stakedAmount == 0 {
		return SwapResult{}, ErrInvalidInput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lpSupply == 0 {
		return SwapResult{}, ErrInsufficientLiquidity
	}

	rate := fee.Clamp(p.selector.Select(fee.Quote{
		Min:             p.minFee,
		Max:             p.maxFee,
		BaseReserve:     p.baseReserve,
		LiquidityTarget: p.liquidityTarget,
	}), p.minFee, p.maxFee)

	net, ok := fixed.ProductDivRound(fixed.Scale*fixed.Scale,
		uint64(stakedAmount), uint64(p.price), uint64(fixed.OneHundredPercent-rate))
	if !ok || fixed.Amount(net) > p.baseReserve {
		return SwapResult{}, ErrInsufficientLiquidity
	}
	gross, ok := fixed.MulDiv(uint64(stakedAmount), uint64(p.price), fixed.Scale)
	if !ok {
		gross = math.MaxUint64
	}
	staked, ok := checkedAdd(p.stakedReserve, stakedAmount)
	if !ok {
		return SwapResult{}, ErrInvalidInput
	}

	res := SwapResult{FeeRate: rate, Gross: fixed.Amount(gross), Net: fixed.Amount(net)}
	p.baseReserve = mustSub("base reserve", p.baseReserve, res.Net)
	p.stakedReserve = staked

	p.logger.Debug("swap",
		zap.Stringer("staked_in", stakedAmount),
		zap.Stringer("fee_rate", rate),
		zap.Stringer("base_out", res.Net),
		zap.Stringer("base_reserve", p.baseReserve),
		zap.Stringer("staked_reserve", p.stakedReserve),
	)
	return res, nil
}

func checkedAdd(a, b fixed.Amount) (fixed.Amount, bool) {
	sum := a + b
	return sum, sum >= a
}

// mustSub panics on underflow; callers guarantee b <= a.
func mustSub(field string, a, b fixed.Amount) fixed.Amount {
	if b > a {
		panic(fmt.Sprintf("pool: %s underflow: %d - %d", field, a, b))
	}
	return a - b
}
