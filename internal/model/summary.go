package model

// Summary aggregates the outcome of a journal replay. Amounts are fixed-point units.
type Summary struct {
	Operations      uint64 `json:"operations"`
	Deposits        uint64 `json:"deposits"`
	Withdrawals     uint64 `json:"withdrawals"`
	Swaps           uint64 `json:"swaps"`
	Failed          uint64 `json:"failed"`
	Deposited       uint64 `json:"deposited"`
	Minted          uint64 `json:"minted"`
	Burned          uint64 `json:"burned"`
	WithdrawnBase   uint64 `json:"withdrawn_base"`
	WithdrawnStaked uint64 `json:"withdrawn_staked"`
	StakedIn        uint64 `json:"staked_in"`
	BaseOut         uint64 `json:"base_out"`
	FeesRetained    uint64 `json:"fees_retained"`
	LastSeq         uint64 `json:"last_seq"`
}
