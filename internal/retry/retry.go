// Package retry wraps store operations with bounded, exponential-backoff
// retries for transient infrastructure failures. Permanent errors (constraint
// violations, malformed queries, missing rows) surface immediately.
package retry

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the initial attempt.
	DefaultMaxRetries = 3
	// DefaultDelay is the base backoff delay before the first retry.
	DefaultDelay = time.Second
)

// Executor retries an operation on transient failures with exponential
// backoff: the wait before retry n is delay * 2^n (no jitter). The operation
// runs at most maxRetries+1 times and the last error is always returned to
// the caller; a final failure is never swallowed.
//
// Operations must be idempotent or otherwise safe to re-run from scratch.
type Executor struct {
	maxRetries int
	delay      time.Duration

	// sleep is the backoff wait, injectable for tests. It returns early
	// with the context error when ctx is cancelled.
	sleep func(ctx context.Context, d time.Duration) error

	// onRetry, when set, observes each retry attempt (1-based).
	onRetry func(attempt int)
}

// Option configures an Executor.
type Option func(*Executor)

// WithOnRetry registers a hook invoked before each retry, typically to bump
// a metrics counter.
func WithOnRetry(fn func(attempt int)) Option {
	return func(e *Executor) { e.onRetry = fn }
}

// New creates an Executor. Non-positive maxRetries or delay fall back to the
// defaults.
func New(maxRetries int, delay time.Duration, opts ...Option) *Executor {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	e := &Executor{
		maxRetries: maxRetries,
		delay:      delay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do runs op, retrying on transient errors until it succeeds, a permanent
// error occurs, retries are exhausted, or ctx is cancelled. The returned
// error is always the last error op produced.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op(ctx)
		if err == nil || !Transient(err) || attempt >= e.maxRetries {
			return err
		}

		backoff := e.delay * (1 << attempt)
		slog.Debug("transient store error, retrying",
			"attempt", attempt+1,
			"max_retries", e.maxRetries,
			"backoff", backoff,
			"error", err,
		)
		if e.onRetry != nil {
			e.onRetry(attempt + 1)
		}
		if e.sleep(ctx, backoff) != nil {
			// The caller abandoned the request; stop retrying and
			// surface the operation's last error.
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
