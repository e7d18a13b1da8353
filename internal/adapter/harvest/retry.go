package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = time.Second
)

// withRetry retries transient fetch failures with doubling backoff. Catalogue
// APIs shed load under harvest traffic, so a failed page is usually
// recoverable on the next attempt.
func withRetry(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			logger.Warn("harvest_attempt_failed",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
				slog.String("error", err.Error()))
		} else {
			return nil
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, maxAttempts, lastErr)
}
