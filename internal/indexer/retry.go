package indexer

import (
	"context"
	"time"

	"loanScope/internal/chain"
)

const maxRetryDelay = 10 * time.Second

// withRetry calls fn until it succeeds or maxRetries retries are used up,
// doubling the delay between attempts. Rate-limited responses wait twice as
// long before the next attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= maxRetries {
			return err
		}

		wait := delay
		if chain.ClassifyRPCError(err) == "rate_limited" {
			wait = capDelay(2 * delay)
		}
		if !sleep(ctx, wait) {
			return ctx.Err()
		}
		delay = capDelay(2 * delay)
	}
}

func capDelay(d time.Duration) time.Duration {
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
