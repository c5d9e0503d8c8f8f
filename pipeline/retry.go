package pipeline

import (
	"context"
	"fmt"
	"time"

	"collegeseeker/types"
)

const maxAttempts = 3

// retry runs op up to maxAttempts times with a linear backoff between
// attempts. Validation and config errors are surfaced immediately.
func retry[T any](ctx context.Context, what string, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		out, err := op()
		if err == nil {
			return out, nil
		}
		if !types.IsRetryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", what, maxAttempts, lastErr)
}
