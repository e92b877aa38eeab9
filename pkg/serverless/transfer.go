package serverless

import (
	"context"
	"time"

	"github.com/wrench-sim/wrench/pkg/simclock"
)

// transferDuration converts a byte count and a rate (bytes/sec) into
// a simulated duration, mirroring pkg/action's disk-transfer model.
func transferDuration(bytes int64, rate float64) time.Duration {
	if rate <= 0 || bytes <= 0 {
		return 0
	}
	return time.Duration(float64(bytes) / rate * float64(time.Second))
}

// sleepCtx blocks for d on clock, or returns ctx.Err() if ctx is
// cancelled first.
func sleepCtx(ctx context.Context, clock simclock.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
