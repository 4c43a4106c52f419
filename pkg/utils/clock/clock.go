package clock

import (
	"context"
	"time"
)

// Clock provides wall-clock time, a monotonic elapsed reading, and an
// interruptible sleep.
type Clock interface {
	// Now returns the current wall-clock time
	Now() time.Time

	// Since returns the monotonic time elapsed since start, where start was
	// obtained from Now. It is not affected by wall-clock adjustments.
	Since(start time.Time) time.Duration

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// Real returns the system clock. time.Now carries a monotonic reading, so
// Since is immune to wall-clock changes.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Since(start time.Time) time.Duration {
	return time.Since(start)
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
