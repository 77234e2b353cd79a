package adapter

import (
	"context"
	"fmt"
	"time"
)

// BaseBackoff is the delay before the first retry. It doubles per attempt.
var BaseBackoff = 500 * time.Millisecond

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. It stops early when fn succeeds, when ctx is done, or when
// permanent reports the error as not worth retrying.
func Retry(ctx context.Context, retries int, fn func(context.Context) error, permanent func(error) bool) (int, error) {
	attempts := 1 + retries
	var lastErr error

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			select {
			case <-ctx.Done():
				return i, fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return i + 1, nil
		}
		if permanent != nil && permanent(lastErr) {
			return i + 1, fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}

	return attempts, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
