package model

// PoolState captures every ledger field in fixed-point units.
type PoolState struct {
	Price           uint64 `json:"price"`
	BaseReserve     uint64 `json:"base_reserve"`
	StakedReserve   uint64 `json:"staked_reserve"`
	LpSupply        uint64 `json:"lp_supply"`
	LiquidityTarget uint64 `json:"liquidity_target"`
	MinFee          uint64 `json:"min_fee"`
	MaxFee          uint64 `json:"max_fee"`
}
