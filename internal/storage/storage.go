package storage

import (
	"context"

	"lppool/internal/model"
)

// Storage defines a sink for operation results.
type Storage interface {
	PutResultBatch(ctx context.Context, results []model.OperationResult) error
}
