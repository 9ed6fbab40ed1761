package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lppool/internal/model"
	"lppool/internal/storage/postgres"
)

// CheckpointStore persists the replay checkpoint between runs.
type CheckpointStore interface {
	Load(ctx context.Context) (model.Checkpoint, bool, error)
	Save(ctx context.Context, cp model.Checkpoint) error
}

// FileCheckpointStore keeps the checkpoint in a local JSON file.
// An empty Path disables checkpointing.
type FileCheckpointStore struct {
	Path string
}

func (s *FileCheckpointStore) Load(ctx context.Context) (model.Checkpoint, bool, error) {
	if s == nil || s.Path == "" {
		return model.Checkpoint{}, false, nil
	}

	stat, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Checkpoint{}, false, nil
		}
		return model.Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return model.Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *FileCheckpointStore) Save(ctx context.Context, cp model.Checkpoint) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// DBCheckpointStore keeps the checkpoint in the pool_snapshots table.
type DBCheckpointStore struct {
	Store *postgres.Store
}

func (s *DBCheckpointStore) Load(ctx context.Context) (model.Checkpoint, bool, error) {
	if s == nil || s.Store == nil {
		return model.Checkpoint{}, false, nil
	}
	return s.Store.LoadCheckpoint(ctx)
}

func (s *DBCheckpointStore) Save(ctx context.Context, cp model.Checkpoint) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveCheckpoint(ctx, cp)
}
