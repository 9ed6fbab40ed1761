package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lppool/internal/fee"
)

func main() {
	root := &cobra.Command{
		Use:          "lppool",
		Short:        "Single-sided liquidity pool ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the reference deposit/swap/withdraw scenario",
		RunE:  runDemo,
	}
	addPoolFlags(demoCmd.Flags())
	demoCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(demoCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSONL operation journal against a pool",
		RunE:  runReplay,
	}
	addPoolFlags(replayCmd.Flags())
	replayCmd.Flags().String("in", "", "input operations JSONL")
	replayCmd.Flags().String("out", "./data/results.jsonl", "output results JSONL")
	replayCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN (stores results and checkpoints in Postgres)")
	replayCmd.Flags().String("pool-name", "default", "pool name used as the Postgres key")
	replayCmd.Flags().Uint64("batch-size", 500, "operations per batch")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPoolFlags(flags *pflag.FlagSet) {
	flags.Float64("price", 1.5, "staked token price in base tokens")
	flags.Float64("min-fee", 0.9, "minimum swap fee in percent")
	flags.Float64("max-fee", 9, "maximum swap fee in percent")
	flags.Float64("liquidity-target", 90, "base reserve liquidity target")
	flags.String("fee-mode", fee.ModeUniform, "fee selection (uniform, fixed, utilization)")
	flags.Uint64("fee-seed", 0, "seed for uniform fee selection, 0 seeds from time")
	flags.Float64("fixed-fee", 0, "fee in percent for fixed mode, clamped to the bounds")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
