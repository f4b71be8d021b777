// Package session runs a clock to the end from a blocking caller.
package session

import (
	"context"
	"errors"
	"time"

	"tock/internal/tock"
)

// Run starts c with duration and blocks until the run ends: the countdown
// completes, c is stopped elsewhere, limit elapses, or ctx is done. An
// elapsed limit stops the clock and is not an error; a canceled ctx stops
// the clock and returns ctx.Err(). The returned value is c.Lap() after
// the run ended. A non-positive limit means no limit.
func Run(ctx context.Context, c *tock.Clock, duration, limit time.Duration) (time.Duration, error) {
	runCtx := ctx
	if limit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	done := c.Start(duration)

	select {
	case <-done:
		// If the run is over, we just report the frozen time.
		return c.Lap(), nil
	case <-runCtx.Done():
		c.Stop()
		if err := ctx.Err(); err != nil {
			return c.Lap(), err
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return c.Lap(), nil
		}
		return c.Lap(), runCtx.Err()
	}
}
