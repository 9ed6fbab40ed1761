package journal

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lppool/internal/fee"
	"lppool/internal/fixed"
	"lppool/internal/model"
	"lppool/internal/pool"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

type memSink struct {
	mu       sync.Mutex
	failures int
	calls    int
	results  []model.OperationResult
	ctxs     []context.Context
}

func (s *memSink) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ctxs = append(s.ctxs, ctx)
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.results = append(s.results, results...)
	return nil
}

func referenceJournal() []model.Operation {
	return []model.Operation{
		{Seq: 1, Op: model.OpAddLiquidity, Account: alice, Amount: 100},
		{Seq: 2, Op: model.OpSwap, Amount: 6},
		{Seq: 3, Op: model.OpAddLiquidity, Account: bob, Amount: 10},
		{Seq: 4, Op: model.OpSwap, Amount: 30},
		{Seq: 5, Op: model.OpRemoveLiquidity, Amount: 109.9991},
	}
}

func testRunConfig(t *testing.T, batchSize uint64) RunConfig {
	t.Helper()
	cfg, err := pool.NewConfig(1.5, 0.9, 9, 90)
	require.NoError(t, err)
	return RunConfig{
		Pool:      cfg,
		BatchSize: batchSize,
		Retry:     RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond},
	}
}

func TestRunnerReplaysReferenceJournal(t *testing.T) {
	sink := &memSink{}
	store := &FileCheckpointStore{Path: filepath.Join(t.TempDir(), "checkpoint.json")}
	runner := NewRunner(testRunConfig(t, 2), fee.Fixed{Rate: 9_000}, sink, store, zap.NewNop())

	require.NoError(t, runner.Run(context.Background(), referenceJournal()))

	require.Len(t, sink.results, 5)
	require.Equal(t, 3, sink.calls)
	for _, res := range sink.results {
		require.Equal(t, model.StatusOK, res.Status, "seq %d: %s", res.Seq, res.Error)
	}
	require.Equal(t, 100.0, sink.results[0].Minted)
	require.Equal(t, 8.919, sink.results[1].Received)
	require.Equal(t, uint64(9_000), sink.results[1].FeeRate)
	require.Equal(t, 10.979238, sink.results[2].Minted)
	require.Equal(t, 44.595, sink.results[3].Received)
	require.Equal(t, 55.987131, sink.results[4].Base)
	require.Equal(t, 35.682057, sink.results[4].Staked)
	require.Equal(t, runner.Pool().State(), sink.results[4].State)

	sum := runner.Summary()
	require.Equal(t, uint64(5), sum.Operations)
	require.Equal(t, uint64(2), sum.Deposits)
	require.Equal(t, uint64(2), sum.Swaps)
	require.Equal(t, uint64(1), sum.Withdrawals)
	require.Zero(t, sum.Failed)
	require.Equal(t, uint64(110_000_000), sum.Deposited)
	require.Equal(t, uint64(36_000_000), sum.StakedIn)
	require.Equal(t, uint64(8_919_000+44_595_000), sum.BaseOut)
	// gross 9 + 45 minus net payouts
	require.Equal(t, uint64(54_000_000-8_919_000-44_595_000), sum.FeesRetained)

	require.Equal(t, map[string]uint64{
		alice: 100_000_000,
		bob:   10_979_238,
	}, runner.Positions())

	cp, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(5), cp.LastSeq)
	require.Equal(t, runner.Pool().State(), cp.Pool)
	require.Equal(t, sum, cp.Summary)
}

func TestRunnerRecordsPoolErrors(t *testing.T) {
	sink := &memSink{}
	runner := NewRunner(testRunConfig(t, 10), fee.Fixed{Rate: 9_000}, sink, nil, nil)

	ops := []model.Operation{
		{Seq: 1, Op: model.OpSwap, Amount: 1},
		{Seq: 2, Op: model.OpAddLiquidity, Amount: 0},
		{Seq: 3, Op: model.OpAddLiquidity, Account: alice, Amount: 50},
		{Seq: 4, Op: model.OpRemoveLiquidity, Amount: -1},
		{Seq: 5, Op: model.OpRemoveLiquidity, Account: bob, Amount: 1},
		{Seq: 6, Op: "rebalance", Amount: 1},
		{Seq: 7, Op: model.OpSwap, Amount: 0},
	}
	require.NoError(t, runner.Run(context.Background(), ops))
	require.Len(t, sink.results, 7)

	wantErr := map[uint64]error{
		1: pool.ErrInsufficientLiquidity,
		2: pool.ErrInvalidInput,
		4: pool.ErrInsufficientLiquidity,
		5: pool.ErrInsufficientLiquidity,
		7: pool.ErrInvalidInput,
	}
	for _, res := range sink.results {
		switch res.Seq {
		case 3:
			require.Equal(t, model.StatusOK, res.Status)
		case 6:
			require.Equal(t, model.StatusError, res.Status)
			require.Contains(t, res.Error, "unknown operation")
		default:
			require.Equal(t, model.StatusError, res.Status)
			require.Contains(t, res.Error, wantErr[res.Seq].Error())
		}
	}

	require.Equal(t, uint64(6), runner.Summary().Failed)
	st := runner.Pool().State()
	require.Equal(t, uint64(50_000_000), st.BaseReserve)
	require.Equal(t, uint64(50_000_000), st.LpSupply)
}

func TestRunnerEnforcesAccountPositions(t *testing.T) {
	sink := &memSink{}
	runner := NewRunner(testRunConfig(t, 10), fee.Fixed{Rate: 9_000}, sink, nil, nil)

	ops := []model.Operation{
		{Seq: 1, Op: model.OpAddLiquidity, Account: alice, Amount: 100},
		{Seq: 2, Op: model.OpAddLiquidity, Account: bob, Amount: 10},
		{Seq: 3, Op: model.OpRemoveLiquidity, Account: bob, Amount: 20},
		{Seq: 4, Op: model.OpRemoveLiquidity, Account: bob, Amount: 10},
	}
	require.NoError(t, runner.Run(context.Background(), ops))

	require.Equal(t, model.StatusError, sink.results[2].Status)
	require.Equal(t, sink.results[1].State, sink.results[2].State)
	require.Equal(t, model.StatusOK, sink.results[3].Status)
	require.Equal(t, 10.0, sink.results[3].Base)
	require.Equal(t, map[string]uint64{alice: 100_000_000}, runner.Positions())
	require.Equal(t, fixed.Amount(100_000_000), runner.positions.Balance(alice))
	require.Zero(t, runner.positions.Balance(bob))
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	journal := referenceJournal()

	first := &memSink{}
	runner := NewRunner(testRunConfig(t, 2), fee.Fixed{Rate: 9_000}, first, &FileCheckpointStore{Path: path}, nil)
	require.NoError(t, runner.Run(context.Background(), journal[:3]))
	require.Len(t, first.results, 3)

	second := &memSink{}
	resumed := NewRunner(testRunConfig(t, 2), fee.Fixed{Rate: 9_000}, second, &FileCheckpointStore{Path: path}, nil)
	require.NoError(t, resumed.Run(context.Background(), journal))
	require.Len(t, second.results, 2)
	require.Equal(t, uint64(4), second.results[0].Seq)

	oneShot := NewRunner(testRunConfig(t, 2), fee.Fixed{Rate: 9_000}, &memSink{}, nil, nil)
	require.NoError(t, oneShot.Run(context.Background(), journal))
	require.Equal(t, oneShot.Pool().State(), resumed.Pool().State())
	require.Equal(t, oneShot.Positions(), resumed.Positions())

	// a third run over the same journal has nothing left to apply
	third := &memSink{}
	again := NewRunner(testRunConfig(t, 2), fee.Fixed{Rate: 9_000}, third, &FileCheckpointStore{Path: path}, nil)
	require.NoError(t, again.Run(context.Background(), journal))
	require.Zero(t, third.calls)

	sum := again.Summary()
	require.Equal(t, uint64(5), sum.Operations)
	require.Equal(t, oneShot.Summary(), sum)
}

func TestRunnerRejectsMismatchedCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	runner := NewRunner(testRunConfig(t, 2), fee.Fixed{}, &memSink{}, &FileCheckpointStore{Path: path}, nil)
	require.NoError(t, runner.Run(context.Background(), referenceJournal()[:1]))

	cfg := testRunConfig(t, 2)
	cfg.Pool.Price = 2_000_000
	other := NewRunner(cfg, fee.Fixed{}, &memSink{}, &FileCheckpointStore{Path: path}, nil)
	err := other.Run(context.Background(), referenceJournal())
	require.ErrorContains(t, err, "differ")
}

func TestRunnerRetriesSink(t *testing.T) {
	sink := &memSink{failures: 2}
	runner := NewRunner(testRunConfig(t, 10), fee.Fixed{}, sink, nil, nil)
	require.NoError(t, runner.Run(context.Background(), referenceJournal()))
	require.Equal(t, 3, sink.calls)
	require.Len(t, sink.results, 5)

	failing := &memSink{failures: 5}
	runner = NewRunner(testRunConfig(t, 10), fee.Fixed{}, failing, nil, nil)
	err := runner.Run(context.Background(), referenceJournal())
	require.ErrorContains(t, err, "store results after 3 attempts")
}

func TestRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	runner := NewRunner(testRunConfig(t, 1), fee.Fixed{}, sink, nil, nil)
	require.ErrorIs(t, runner.Run(ctx, referenceJournal()), context.Canceled)
	require.Empty(t, sink.results)
}

type ctxKey struct{}

func TestRunnerPassesContextToSink(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "replay")

	sink := &memSink{failures: 1}
	runner := NewRunner(testRunConfig(t, 2), fee.Fixed{}, sink, nil, nil)
	require.NoError(t, runner.Run(ctx, referenceJournal()))

	require.Len(t, sink.ctxs, 4)
	for _, got := range sink.ctxs {
		require.Equal(t, "replay", got.Value(ctxKey{}))
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	runner := NewRunner(testRunConfig(t, 0), nil, &memSink{}, nil, nil)
	require.Error(t, runner.Run(context.Background(), nil))

	runner = NewRunner(testRunConfig(t, 1), nil, nil, nil, nil)
	require.Error(t, runner.Run(context.Background(), nil))

	cfg := testRunConfig(t, 1)
	cfg.Pool.MinFee, cfg.Pool.MaxFee = cfg.Pool.MaxFee, cfg.Pool.MinFee
	runner = NewRunner(cfg, nil, &memSink{}, nil, nil)
	require.ErrorIs(t, runner.Run(context.Background(), nil), pool.ErrInvalidFeeBounds)
}

func TestReadOperations(t *testing.T) {
	input := strings.Join([]string{
		`{"op":"add_liquidity","account":"0x1111111111111111111111111111111111111111","amount":100}`,
		``,
		`{"op":"swap","amount":6}`,
		`{"seq":10,"op":"remove_liquidity","amount":1.5}`,
		`{"op":"swap","amount":2}`,
	}, "\n")

	ops, err := ReadOperations(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []model.Operation{
		{Seq: 1, Op: model.OpAddLiquidity, Account: alice, Amount: 100},
		{Seq: 2, Op: model.OpSwap, Amount: 6},
		{Seq: 10, Op: model.OpRemoveLiquidity, Amount: 1.5},
		{Seq: 11, Op: model.OpSwap, Amount: 2},
	}, ops)
}

func TestReadOperationsErrors(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"op":`,
		"bad account":    `{"op":"swap","account":"alice","amount":1}`,
		"seq regression": "{\"seq\":5,\"op\":\"swap\",\"amount\":1}\n{\"seq\":5,\"op\":\"swap\",\"amount\":1}",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadOperations(strings.NewReader(input))
			require.Error(t, err)
		})
	}
}

func TestParseAccountChecksums(t *testing.T) {
	lower, err := ParseAccount(" 0xabcdefabcdefabcdefabcdefabcdefabcdefabcd ")
	require.NoError(t, err)
	upper, err := ParseAccount("0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD")
	require.NoError(t, err)
	require.Equal(t, lower, upper)
	require.NotEqual(t, strings.ToLower(lower), lower)

	got, err := ParseAccount(alice)
	require.NoError(t, err)
	require.Equal(t, alice, got)

	got, err = ParseAccount("")
	require.NoError(t, err)
	require.Empty(t, got)
}
