package tock

import (
	"log/slog"

	"tock/internal/hosttime"
)

// Option configures a Clock at construction.
type Option func(*Clock)

// WithSource sets the host timer primitive. Defaults to hosttime.NewReal().
func WithSource(src hosttime.Source) Option {
	return func(c *Clock) {
		c.src = src
	}
}

// WithOnTick sets the function called once per tick.
func WithOnTick(fn func(*Clock)) Option {
	return func(c *Clock) {
		c.onTick = fn
	}
}

// WithOnComplete sets the function called once when a countdown reaches zero.
func WithOnComplete(fn func()) Option {
	return func(c *Clock) {
		c.onComplete = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) {
		c.log = l
	}
}

// WithObserver adds an event observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(c *Clock) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
