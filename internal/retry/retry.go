// Package retry wraps fallible operations in a bounded
// exponential-backoff retry loop.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy retries five times in total, sleeping 1s, 2s, 4s and 8s
// between the attempts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     8 * time.Second,
	}
}

// Do runs op until it succeeds or the policy's attempts are exhausted,
// sleeping an exponentially growing delay between failures. The first
// success wins; exhaustion returns the last error. Cancelling the context
// aborts the wait between attempts.
//
// Retrying is uniform: Do cannot tell transient failures from permanent
// ones, so callers with a definitive negative outcome (a 404 probe, say)
// should model it as a successful result rather than an error.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxAttempts))
}

// DoVoid is Do for operations that produce no result.
func DoVoid(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
