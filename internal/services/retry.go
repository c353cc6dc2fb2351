package services

import (
	"context"
	"time"

	"eventgate/internal/models"
	"eventgate/internal/repositories"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 25 * time.Millisecond
)

// withRetry runs fn up to attempts times, backing off between tries, but only
// when the failure is a transient database condition. Non-retryable errors
// and context cancellation are returned immediately. When all attempts fail
// the last error is wrapped as a TransientError for the caller to classify.
func withRetry(ctx context.Context, op string, attempts int, backoff time.Duration, fn func() error) error {
	var lastErr error
	delay := backoff
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !repositories.IsRetryable(lastErr) {
			return lastErr
		}
		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return &models.TransientError{Op: op, Err: lastErr}
}
