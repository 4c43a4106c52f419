package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually driven clock. Sleep advances the clock instantly and
// records the requested duration.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// OnSleep, when set, runs after every Sleep with the new time
	OnSleep func(now time.Time)
}

// NewFake returns a fake clock starting at start
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Since(start time.Time) time.Duration {
	return f.Now().Sub(start)
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.now = f.now.Add(d)
	f.sleeps = append(f.sleeps, d)
	now := f.now
	hook := f.OnSleep
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	return ctx.Err()
}

// Advance moves the clock forward without recording a sleep
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Sleeps returns every duration passed to Sleep
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}
