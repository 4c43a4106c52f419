package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/utils/clock"
)

func TestRealSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clock.Real().Sleep(ctx, time.Hour)
	gt.Error(t, err).Is(context.Canceled)
}

func TestRealSleepReturns(t *testing.T) {
	c := clock.Real()
	start := c.Now()
	gt.NoError(t, c.Sleep(context.Background(), time.Millisecond)).Required()
	gt.Bool(t, c.Since(start) >= time.Millisecond).True()
}

func TestFake(t *testing.T) {
	start := time.Unix(1000, 0)
	f := clock.NewFake(start)

	gt.NoError(t, f.Sleep(context.Background(), 2*time.Second)).Required()
	f.Advance(time.Second)

	gt.Value(t, f.Since(start)).Equal(3 * time.Second)
	gt.Value(t, f.Sleeps()).Equal([]time.Duration{2 * time.Second})
}
