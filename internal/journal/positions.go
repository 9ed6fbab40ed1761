package journal

import (
	"fmt"

	"lppool/internal/fixed"
	"lppool/internal/pool"
)

// Positions tracks the LP shares held by named accounts. The anonymous
// account is never tracked or checked.
type Positions struct {
	balances map[string]fixed.Amount
}

func NewPositions(initial map[string]uint64) *Positions {
	p := &Positions{balances: make(map[string]fixed.Amount, len(initial))}
	for account, balance := range initial {
		if balance > 0 {
			p.balances[account] = fixed.Amount(balance)
		}
	}
	return p
}

func (p *Positions) Balance(account string) fixed.Amount {
	return p.balances[account]
}

// CheckDebit reports pool.ErrInsufficientLiquidity when account holds fewer
// than amount shares.
func (p *Positions) CheckDebit(account string, amount fixed.Amount) error {
	if account == "" {
		return nil
	}
	if held := p.balances[account]; held < amount {
		return fmt.Errorf("account %s holds %s lp: %w", account, held, pool.ErrInsufficientLiquidity)
	}
	return nil
}

func (p *Positions) Credit(account string, amount fixed.Amount) {
	if account == "" || amount == 0 {
		return
	}
	p.balances[account] += amount
}

// Debit must follow a successful CheckDebit.
func (p *Positions) Debit(account string, amount fixed.Amount) {
	if account == "" {
		return
	}
	left := p.balances[account] - amount
	if left == 0 {
		delete(p.balances, account)
		return
	}
	p.balances[account] = left
}

// Export returns the balances in fixed-point units for checkpointing.
func (p *Positions) Export() map[string]uint64 {
	out := make(map[string]uint64, len(p.balances))
	for account, balance := range p.balances {
		out[account] = uint64(balance)
	}
	return out
}
