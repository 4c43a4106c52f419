package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/usecase"
	"github.com/secmon-lab/clacks/pkg/utils/clock"
)

func TestInvoke(t *testing.T) {
	ctx := context.Background()

	t.Run("returns value without sleeping", func(t *testing.T) {
		fake := clock.NewFake(testStart)
		inv := usecase.NewInvoker(usecase.WithInvokerClock(fake))

		v, err := usecase.Invoke(ctx, inv, "op", func(ctx context.Context) (int, error) {
			return 42, nil
		})
		gt.NoError(t, err).Required()
		gt.Number(t, v).Equal(42)
		gt.Array(t, fake.Sleeps()).Length(0)
	})

	t.Run("backs off with the larger of server delay and exponential delay", func(t *testing.T) {
		fake := clock.NewFake(testStart)
		inv := usecase.NewInvoker(usecase.WithInvokerClock(fake))

		errs := []error{
			&model.RateLimitedError{RetryAfter: 5 * time.Second},
			&model.RateLimitedError{},
			&model.RateLimitedError{RetryAfter: time.Second},
		}
		calls := 0
		v, err := usecase.Invoke(ctx, inv, "op", func(ctx context.Context) (string, error) {
			calls++
			if calls <= len(errs) {
				return "", errs[calls-1]
			}
			return "ok", nil
		})
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal("ok")
		gt.Number(t, calls).Equal(4)
		gt.Value(t, fake.Sleeps()).Equal([]time.Duration{5 * time.Second, 2 * time.Second, 4 * time.Second})
	})

	t.Run("surfaces the rate limit after the last attempt", func(t *testing.T) {
		fake := clock.NewFake(testStart)
		inv := usecase.NewInvoker(usecase.WithInvokerClock(fake))

		calls := 0
		_, err := usecase.Invoke(ctx, inv, "op", func(ctx context.Context) (int, error) {
			calls++
			return 0, &model.RateLimitedError{}
		})

		var rle *model.RateLimitedError
		gt.Bool(t, errors.As(err, &rle)).True()
		gt.Number(t, calls).Equal(usecase.DefaultMaxAttempts)
		gt.Value(t, fake.Sleeps()).Equal([]time.Duration{
			time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		})
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		fake := clock.NewFake(testStart)
		inv := usecase.NewInvoker(usecase.WithInvokerClock(fake))
		boom := errors.New("boom")

		calls := 0
		_, err := usecase.Invoke(ctx, inv, "op", func(ctx context.Context) (int, error) {
			calls++
			return 0, boom
		})
		gt.Error(t, err).Is(boom)
		gt.Number(t, calls).Equal(1)
		gt.Array(t, fake.Sleeps()).Length(0)
	})

	t.Run("cancellation interrupts the backoff", func(t *testing.T) {
		fake := clock.NewFake(testStart)
		inv := usecase.NewInvoker(usecase.WithInvokerClock(fake), usecase.WithMaxAttempts(3))

		cctx, cancel := context.WithCancel(ctx)
		fake.OnSleep = func(time.Time) { cancel() }

		calls := 0
		_, err := usecase.Invoke(cctx, inv, "op", func(ctx context.Context) (int, error) {
			calls++
			return 0, &model.RateLimitedError{}
		})
		gt.Error(t, err).Is(context.Canceled)
		gt.Number(t, calls).Equal(1)
	})

	t.Run("custom attempts and base delay", func(t *testing.T) {
		fake := clock.NewFake(testStart)
		inv := usecase.NewInvoker(
			usecase.WithInvokerClock(fake),
			usecase.WithMaxAttempts(2),
			usecase.WithBaseDelay(100*time.Millisecond),
		)

		_, err := usecase.Invoke(ctx, inv, "op", func(ctx context.Context) (int, error) {
			return 0, &model.RateLimitedError{}
		})
		gt.Value(t, err).NotNil()
		gt.Value(t, fake.Sleeps()).Equal([]time.Duration{100 * time.Millisecond})
	})
}
