package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lppool/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_operations (
	pool_name     TEXT        NOT NULL,
	seq           BIGINT      NOT NULL,
	op            TEXT        NOT NULL,
	account       TEXT        NOT NULL DEFAULT '',
	amount        DOUBLE PRECISION NOT NULL,
	status        TEXT        NOT NULL,
	error         TEXT        NOT NULL DEFAULT '',
	minted        DOUBLE PRECISION NOT NULL DEFAULT 0,
	base          DOUBLE PRECISION NOT NULL DEFAULT 0,
	staked        DOUBLE PRECISION NOT NULL DEFAULT 0,
	received      DOUBLE PRECISION NOT NULL DEFAULT 0,
	fee_rate      BIGINT      NOT NULL DEFAULT 0,
	state         JSONB       NOT NULL,
	applied_at    TEXT        NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_name, seq)
);

CREATE TABLE IF NOT EXISTS pool_snapshots (
	pool_name  TEXT        PRIMARY KEY,
	snapshot   JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pool_summaries (
	pool_name  TEXT        PRIMARY KEY,
	summary    JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for a named pool's journal results,
// checkpoints and replay summary.
type Store struct {
	pool *pgxpool.Pool
	name string
}

func NewStore(ctx context.Context, dsn, name string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if name == "" {
		return nil, fmt.Errorf("pool name is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, name: name}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutResultBatch inserts operation results. Re-applied sequence numbers
// overwrite the earlier row.
func (s *Store) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		state, err := json.Marshal(r.State)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_operations (
				pool_name, seq, op, account, amount, status, error,
				minted, base, staked, received, fee_rate, state, applied_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (pool_name, seq)
			DO UPDATE SET
				op = EXCLUDED.op,
				account = EXCLUDED.account,
				amount = EXCLUDED.amount,
				status = EXCLUDED.status,
				error = EXCLUDED.error,
				minted = EXCLUDED.minted,
				base = EXCLUDED.base,
				staked = EXCLUDED.staked,
				received = EXCLUDED.received,
				fee_rate = EXCLUDED.fee_rate,
				state = EXCLUDED.state,
				applied_at = EXCLUDED.applied_at
		`,
			s.name,
			int64(r.Seq),
			r.Op,
			r.Account,
			r.Amount,
			r.Status,
			r.Error,
			r.Minted,
			r.Base,
			r.Staked,
			r.Received,
			int64(r.FeeRate),
			state,
			r.AppliedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint returns the stored checkpoint for this pool, if any.
func (s *Store) LoadCheckpoint(ctx context.Context) (model.Checkpoint, bool, error) {
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM pool_snapshots WHERE pool_name=$1`, s.name)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, err
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return cp, true, nil
}

// SaveCheckpoint upserts the checkpoint for this pool.
func (s *Store) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_snapshots (pool_name, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (pool_name) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = now()
	`, s.name, data)
	return err
}

// UpsertSummary stores the latest replay summary.
func (s *Store) UpsertSummary(ctx context.Context, summary model.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_summaries (pool_name, summary, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (pool_name) DO UPDATE
		SET summary = EXCLUDED.summary, updated_at = now()
	`, s.name, data)
	return err
}
