package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lppool/internal/config"
	"lppool/internal/fixed"
	"lppool/internal/model"
	"lppool/internal/pool"
)

var demoScript = []model.Operation{
	{Seq: 1, Op: model.OpAddLiquidity, Amount: 100},
	{Seq: 2, Op: model.OpSwap, Amount: 6},
	{Seq: 3, Op: model.OpAddLiquidity, Amount: 10},
	{Seq: 4, Op: model.OpSwap, Amount: 30},
	{Seq: 5, Op: model.OpRemoveLiquidity, Amount: 109.9991},
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolCfg, err := cfg.Pool.PoolConfig()
	if err != nil {
		return err
	}
	selector, err := cfg.Pool.Selector()
	if err != nil {
		return err
	}

	p, err := pool.New(poolCfg, selector, logger)
	if err != nil {
		return err
	}

	logger.Info("demo start",
		zap.Stringer("price", poolCfg.Price),
		zap.Stringer("min_fee", poolCfg.MinFee),
		zap.Stringer("max_fee", poolCfg.MaxFee),
		zap.Stringer("liquidity_target", poolCfg.LiquidityTarget),
		zap.String("fee_mode", cfg.Pool.FeeMode),
	)

	return runScript(p, demoScript, logger)
}

func runScript(p *pool.Pool, script []model.Operation, logger *zap.Logger) error {
	for _, op := range script {
		fields := []zap.Field{zap.Uint64("seq", op.Seq), zap.Float64("amount", op.Amount)}

		switch op.Op {
		case model.OpAddLiquidity:
			minted, err := p.AddLiquidity(op.Amount)
			if err != nil {
				return fmt.Errorf("step %d add liquidity: %w", op.Seq, err)
			}
			fields = append(fields, zap.Float64("minted", minted))
		case model.OpSwap:
			received, err := p.Swap(op.Amount)
			if err != nil {
				return fmt.Errorf("step %d swap: %w", op.Seq, err)
			}
			fields = append(fields, zap.Float64("received", received))
		case model.OpRemoveLiquidity:
			base, staked, err := p.RemoveLiquidity(op.Amount)
			if err != nil {
				return fmt.Errorf("step %d remove liquidity: %w", op.Seq, err)
			}
			fields = append(fields, zap.Float64("base", base), zap.Float64("staked", staked))
		default:
			return fmt.Errorf("step %d: unknown operation %q", op.Seq, op.Op)
		}

		st := p.State()
		fields = append(fields,
			zap.Stringer("base_reserve", fixed.Amount(st.BaseReserve)),
			zap.Stringer("staked_reserve", fixed.Amount(st.StakedReserve)),
			zap.Stringer("lp_supply", fixed.Amount(st.LpSupply)),
		)
		logger.Info(op.Op, fields...)
	}
	return nil
}
