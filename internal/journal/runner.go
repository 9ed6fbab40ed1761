package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lppool/internal/fee"
	"lppool/internal/fixed"
	"lppool/internal/model"
	"lppool/internal/pool"
	"lppool/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	Pool      pool.Config
	BatchSize uint64
	Retry     RetryPolicy
}

// Runner applies journal operations to a pool in batches, writing results to
// storage and checkpointing after every batch.
type Runner struct {
	cfg         RunConfig
	selector    fee.Selector
	sink        storage.Storage
	checkpoints CheckpointStore
	logger      *zap.Logger

	pool      *pool.Pool
	positions *Positions
	summary   *Accumulator
	lastSeq   uint64
	now       func() time.Time
}

// NewRunner builds a Runner. A nil checkpoint store disables resuming.
func NewRunner(cfg RunConfig, selector fee.Selector, sink storage.Storage, checkpoints CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkpoints == nil {
		checkpoints = &FileCheckpointStore{}
	}
	return &Runner{
		cfg:         cfg,
		selector:    selector,
		sink:        sink,
		checkpoints: checkpoints,
		logger:      logger,
		now:         time.Now,
	}
}

// Pool returns the ledger the runner applied operations to. It is nil until Run starts.
func (r *Runner) Pool() *pool.Pool {
	return r.pool
}

func (r *Runner) Summary() model.Summary {
	if r.summary == nil {
		return model.Summary{}
	}
	return r.summary.Summary()
}

func (r *Runner) Positions() map[string]uint64 {
	if r.positions == nil {
		return map[string]uint64{}
	}
	return r.positions.Export()
}

// Run replays ops, skipping any sequence number covered by the checkpoint.
func (r *Runner) Run(ctx context.Context, ops []model.Operation) error {
	if r.sink == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	if err := r.resume(ctx); err != nil {
		return err
	}

	pending := make([]model.Operation, 0, len(ops))
	for _, op := range ops {
		if op.Seq > r.lastSeq {
			pending = append(pending, op)
		}
	}
	if len(pending) == 0 {
		r.logger.Info("nothing to replay", zap.Uint64("last_seq", r.lastSeq), zap.Int("journal", len(ops)))
		return nil
	}

	spans, err := SplitRange(0, uint64(len(pending)-1), r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, span := range spans {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results := make([]model.OperationResult, 0, span.To-span.From+1)
		for _, op := range pending[span.From : span.To+1] {
			results = append(results, r.apply(op))
		}

		err := retry(ctx, r.cfg.Retry, r.logger, "store results", func(ctx context.Context) error {
			return r.sink.PutResultBatch(ctx, results)
		})
		if err != nil {
			return err
		}

		if err := r.checkpoints.Save(ctx, r.checkpoint()); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}

		r.logger.Info("batch complete",
			zap.Int("operations", len(results)),
			zap.Uint64("first_seq", results[0].Seq),
			zap.Uint64("last_seq", r.lastSeq),
		)
	}

	sum := r.summary.Summary()
	r.logger.Info("replay complete",
		zap.Uint64("operations", sum.Operations),
		zap.Uint64("failed", sum.Failed),
		zap.Uint64("swaps", sum.Swaps),
		zap.Stringer("fees_retained", fixed.Amount(sum.FeesRetained)),
		zap.Uint64("last_seq", sum.LastSeq),
	)
	return nil
}

func (r *Runner) resume(ctx context.Context) error {
	cp, ok, err := r.checkpoints.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		p, err := pool.New(r.cfg.Pool, r.selector, r.logger)
		if err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		r.pool = p
		r.positions = NewPositions(nil)
		r.summary = NewAccumulator(model.Summary{})
		r.lastSeq = 0
		return nil
	}

	if !sameParameters(r.cfg.Pool, cp.Pool) {
		return fmt.Errorf("checkpoint pool parameters differ from configuration")
	}
	p, err := pool.Restore(cp.Pool, r.selector, r.logger)
	if err != nil {
		return fmt.Errorf("restore pool: %w", err)
	}
	r.pool = p
	r.positions = NewPositions(cp.Positions)
	r.summary = NewAccumulator(cp.Summary)
	r.lastSeq = cp.LastSeq
	r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", cp.LastSeq), zap.String("updated_at", cp.UpdatedAt))
	return nil
}

func (r *Runner) checkpoint() model.Checkpoint {
	return model.Checkpoint{
		LastSeq:   r.lastSeq,
		Pool:      r.pool.State(),
		Positions: r.positions.Export(),
		Summary:   r.summary.Summary(),
		UpdatedAt: r.now().UTC().Format(time.RFC3339Nano),
	}
}

func (r *Runner) apply(op model.Operation) model.OperationResult {
	res := model.OperationResult{
		Seq:       op.Seq,
		Op:        op.Op,
		Account:   op.Account,
		Amount:    op.Amount,
		Status:    model.StatusOK,
		AppliedAt: r.now().UTC().Format(time.RFC3339Nano),
	}

	err := r.dispatch(op, &res)
	if err != nil {
		res.Status = model.StatusError
		res.Error = err.Error()
		r.logger.Debug("operation rejected", zap.Uint64("seq", op.Seq), zap.String("op", op.Op), zap.Error(err))
	}
	res.State = r.pool.State()
	r.summary.observe(op.Seq, err)
	r.lastSeq = op.Seq
	return res
}

func (r *Runner) dispatch(op model.Operation, res *model.OperationResult) error {
	amount, ok := fixed.FromFloat(op.Amount)

	switch op.Op {
	case model.OpAddLiquidity:
		if !ok {
			return pool.ErrInvalidInput
		}
		minted, err := r.pool.AddLiquidityFixed(amount)
		if err != nil {
			return err
		}
		r.positions.Credit(op.Account, minted)
		r.summary.addDeposit(amount, minted)
		res.Minted = minted.Float64()

	case model.OpRemoveLiquidity:
		if !ok {
			return pool.ErrInsufficientLiquidity
		}
		if err := r.positions.CheckDebit(op.Account, amount); err != nil {
			return err
		}
		w, err := r.pool.RemoveLiquidityFixed(amount)
		if err != nil {
			return err
		}
		r.positions.Debit(op.Account, amount)
		r.summary.addWithdrawal(amount, w)
		res.Base = w.Base.Float64()
		res.Staked = w.Staked.Float64()

	case model.OpSwap:
		if !ok {
			return pool.ErrInvalidInput
		}
		swap, err := r.pool.SwapFixed(amount)
		if err != nil {
			return err
		}
		r.summary.addSwap(amount, swap)
		res.Received = swap.Net.Float64()
		res.FeeRate = uint64(swap.FeeRate)

	default:
		return fmt.Errorf("unknown operation %q", op.Op)
	}
	return nil
}

func sameParameters(cfg pool.Config, st model.PoolState) bool {
	return uint64(cfg.Price) == st.Price &&
		uint64(cfg.MinFee) == st.MinFee &&
		uint64(cfg.MaxFee) == st.MaxFee &&
		uint64(cfg.LiquidityTarget) == st.LiquidityTarget
}
