package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often a failed sink write is attempted again.
// The backoff doubles after every failure.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func retry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, what string, fn func(context.Context) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > maxRetries {
			return fmt.Errorf("%s after %d attempts: %w", what, attempt, err)
		}
		logger.Warn(what+" failed", zap.Error(err), zap.Int("attempt", attempt), zap.Duration("backoff", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
