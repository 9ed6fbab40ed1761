package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lppool/internal/config"
	"lppool/internal/journal"
	"lppool/internal/storage"
	"lppool/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	poolCfg, err := cfg.Pool.PoolConfig()
	if err != nil {
		return err
	}
	selector, err := cfg.Pool.Selector()
	if err != nil {
		return err
	}

	ops, err := journal.ReadOperationsFile(cfg.In)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sink        storage.Storage
		checkpoints journal.CheckpointStore
		store       *postgres.Store
	)
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN, cfg.PoolName)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
		if cfg.CheckpointEnabled {
			checkpoints = &journal.DBCheckpointStore{Store: store}
		}
	} else {
		jsonl := storage.NewJsonlStorage(cfg.Out)
		defer jsonl.Close()
		sink = jsonl
		if cfg.CheckpointEnabled {
			checkpoints = &journal.FileCheckpointStore{Path: cfg.Checkpoint}
		}
	}

	runner := journal.NewRunner(journal.RunConfig{
		Pool:      poolCfg,
		BatchSize: cfg.BatchSize,
		Retry: journal.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
		},
	}, selector, sink, checkpoints, logger)

	logger.Info("replay start",
		zap.String("input", cfg.In),
		zap.Int("operations", len(ops)),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("pool_name", cfg.PoolName),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.String("fee_mode", cfg.Pool.FeeMode),
	)

	if err := runner.Run(ctx, ops); err != nil {
		return err
	}

	if store != nil {
		if err := store.UpsertSummary(ctx, runner.Summary()); err != nil {
			return fmt.Errorf("store summary: %w", err)
		}
	}
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
