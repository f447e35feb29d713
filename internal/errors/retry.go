package errors

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	MaxRetries        = 3
	InitialBackoff    = 200 * time.Millisecond
	MaxBackoff        = 5 * time.Second
	BackoffMultiplier = 2.0
)

// WithRetry runs fn, retrying retryable failures with exponential backoff.
// Used for best-effort side effects (support notifications, receipt
// forwarding) which must never block or roll back a ledger change.
func WithRetry(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) || attempt == MaxRetries {
			return err
		}

		time.Sleep(backoffFor(attempt + 1))
	}

	return err
}

// IsRetryable reports whether err is marked retryable in the taxonomy.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}

func backoffFor(attempt int) time.Duration {
	delay := time.Duration(float64(InitialBackoff) * math.Pow(BackoffMultiplier, float64(attempt)))
	if delay > MaxBackoff {
		return MaxBackoff
	}

	return delay
}
