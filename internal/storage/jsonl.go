package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lppool/internal/model"
)

// JsonlStorage appends operation results to a JSONL file. The file is opened
// on the first non-empty batch and held until Close.
type JsonlStorage struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutResultBatch writes one JSON line per result and flushes before returning.
func (s *JsonlStorage) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	w := bufio.NewWriter(s.file)
	enc := json.NewEncoder(w)
	for _, result := range results {
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result %d: %w", result.Seq, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

func (s *JsonlStorage) open() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	s.file = file
	return nil
}

// Close releases the output file. Later batches reopen it.
func (s *JsonlStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
