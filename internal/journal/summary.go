package journal

import (
	"math"

	"lppool/internal/fixed"
	"lppool/internal/model"
	"lppool/internal/pool"
)

// Accumulator folds applied operations into a model.Summary.
type Accumulator struct {
	s model.Summary
}

func NewAccumulator(initial model.Summary) *Accumulator {
	return &Accumulator{s: initial}
}

func (a *Accumulator) Summary() model.Summary {
	return a.s
}

func (a *Accumulator) observe(seq uint64, err error) {
	a.s.Operations++
	a.s.LastSeq = seq
	if err != nil {
		a.s.Failed++
	}
}

func (a *Accumulator) addDeposit(amount, minted fixed.Amount) {
	a.s.Deposits++
	a.s.Deposited = satAdd(a.s.Deposited, uint64(amount))
	a.s.Minted = satAdd(a.s.Minted, uint64(minted))
}

func (a *Accumulator) addWithdrawal(burned fixed.Amount, w pool.Withdrawal) {
	a.s.Withdrawals++
	a.s.Burned = satAdd(a.s.Burned, uint64(burned))
	a.s.WithdrawnBase = satAdd(a.s.WithdrawnBase, uint64(w.Base))
	a.s.WithdrawnStaked = satAdd(a.s.WithdrawnStaked, uint64(w.Staked))
}

func (a *Accumulator) addSwap(staked fixed.Amount, res pool.SwapResult) {
	a.s.Swaps++
	a.s.StakedIn = satAdd(a.s.StakedIn, uint64(staked))
	a.s.BaseOut = satAdd(a.s.BaseOut, uint64(res.Net))
	// a zero fee can round Net one unit above the truncated Gross
	if res.Gross > res.Net {
		a.s.FeesRetained = satAdd(a.s.FeesRetained, uint64(res.Gross-res.Net))
	}
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
