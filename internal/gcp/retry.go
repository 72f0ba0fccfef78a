package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy retries a remote call with doubling backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy makes four attempts starting from a one second backoff.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, Backoff: time.Second}

// Do calls fn until it succeeds, the attempts run out or ctx is cancelled during a backoff.
func (p RetryPolicy) Do(ctx context.Context, target string, fn func(ctx context.Context) error) error {
	maxRetries := p.MaxAttempts
	if maxRetries < 1 {
		maxRetries = 1
	}
	backoff := p.Backoff
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries-1 {
			break
		}
		slog.Warn(
			"Upload failed, will retry.",
			"target", target,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "target", target, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "target", target, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", target, lastErr)
}
