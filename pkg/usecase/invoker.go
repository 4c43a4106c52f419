package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/utils/clock"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

const (
	// DefaultMaxAttempts is the number of calls made before a rate limit is surfaced
	DefaultMaxAttempts = 5
	// DefaultBaseDelay is the backoff unit, doubled on every attempt
	DefaultBaseDelay = time.Second
)

// Invoker runs remote calls and retries them with exponential backoff while
// the platform reports rate limiting. It holds no state between calls.
type Invoker struct {
	maxAttempts int
	baseDelay   time.Duration
	clock       clock.Clock
}

// InvokerOption is a functional option for Invoker configuration
type InvokerOption func(*Invoker)

// WithMaxAttempts sets how many times a call is made before giving up
func WithMaxAttempts(n int) InvokerOption {
	return func(inv *Invoker) {
		inv.maxAttempts = max(n, 1)
	}
}

// WithBaseDelay sets the first backoff delay
func WithBaseDelay(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		inv.baseDelay = d
	}
}

// WithInvokerClock replaces the clock used for backoff sleeps
func WithInvokerClock(c clock.Clock) InvokerOption {
	return func(inv *Invoker) {
		inv.clock = c
	}
}

// NewInvoker creates an Invoker with 5 attempts and a 1s base delay
func NewInvoker(opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		clock:       clock.Real(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeFail
)

// classify decides what to do with the result of one attempt and, for a
// retry, how long to wait first.
func (inv *Invoker) classify(err error, attempt int) (outcome, time.Duration) {
	if err == nil {
		return outcomeDone, 0
	}

	var rle *model.RateLimitedError
	if !errors.As(err, &rle) || attempt >= inv.maxAttempts-1 {
		return outcomeFail, 0
	}

	return outcomeRetry, max(rle.RetryAfter, inv.baseDelay<<attempt)
}

// Invoke calls fn until it succeeds, fails with something other than a rate
// limit, or runs out of attempts. The last rate limit error is returned
// unchanged so callers can still match *model.RateLimitedError.
func Invoke[T any](ctx context.Context, inv *Invoker, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)

		result, delay := inv.classify(err, attempt)
		switch result {
		case outcomeDone:
			return v, nil
		case outcomeFail:
			return v, err
		}

		logging.From(ctx).Warn("rate limited, backing off",
			OperationKey, operation,
			AttemptKey, attempt+1,
			"delay", delay,
		)

		if err := inv.clock.Sleep(ctx, delay); err != nil {
			var zero T
			return zero, goerr.Wrap(err, "interrupted while backing off",
				goerr.V(OperationKey, operation), goerr.V(AttemptKey, attempt+1))
		}
	}
}
