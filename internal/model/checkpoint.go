package model

// Checkpoint is the resumable replay state saved after every batch.
type Checkpoint struct {
	LastSeq   uint64            `json:"last_seq"`
	Pool      PoolState         `json:"pool"`
	Positions map[string]uint64 `json:"positions,omitempty"`
	Summary   Summary           `json:"summary"`
	UpdatedAt string            `json:"updated_at"`
}
