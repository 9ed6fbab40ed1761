package model

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// OperationResult records the outcome of an applied Operation.
type OperationResult struct {
	Seq       uint64    `json:"seq"`
	Op        string    `json:"op"`
	Account   string    `json:"account,omitempty"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Minted    float64   `json:"minted,omitempty"`
	Base      float64   `json:"base,omitempty"`
	Staked    float64   `json:"staked,omitempty"`
	Received  float64   `json:"received,omitempty"`
	FeeRate   uint64    `json:"fee_rate,omitempty"`
	State     PoolState `json:"state"`
	AppliedAt string    `json:"applied_at"`
}
