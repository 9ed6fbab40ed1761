package model

// Operation kinds accepted in a journal.
const (
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
)

// Operation is a single journal line applied to the pool.
// Amount is the deposit, LP amount or staked amount depending on Op.
type Operation struct {
	Seq     uint64  `json:"seq"`
	Op      string  `json:"op"`
	Account string  `json:"account,omitempty"`
	Amount  float64 `json:"amount"`
}
