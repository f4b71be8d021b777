// internal/hosttime/real.go

package hosttime

import "time"

var _ Source = (*Real)(nil)

// Real schedules on the Go runtime timers and reads the monotonic clock.
type Real struct{}

// NewReal creates a Real source.
func NewReal() *Real {
	return &Real{}
}

// Now returns time.Now.
func (r *Real) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f in its own goroutine after d.
func (r *Real) AfterFunc(d time.Duration, f func()) Handle {
	if d < 0 {
		d = 0
	}
	return &realHandle{timer: time.AfterFunc(d, f)}
}

type realHandle struct {
	timer *time.Timer
}

func (h *realHandle) Stop() bool {
	return h.timer.Stop()
}
