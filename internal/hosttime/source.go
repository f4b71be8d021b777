// internal/hosttime/source.go

// Package hosttime holds the host timer primitive the clock is driven by:
// a wall-clock reader plus a coarse schedule-once-after-delay call that
// returns a cancelable handle.
package hosttime

import "time"

// Source is the host timer primitive.
type Source interface {
	// Now returns the current wall-clock reading.
	Now() time.Time

	// AfterFunc calls f once, at least d after now. A non-positive d fires
	// as soon as the host allows.
	AfterFunc(d time.Duration, f func()) Handle
}

// Handle is one scheduled callback.
type Handle interface {
	// Stop cancels the callback. It reports false if the callback already
	// fired or was stopped; calling it in that case is harmless.
	Stop() bool
}
