// internal/tock/clock.go

// Package tock implements a drift-corrected stopwatch and countdown clock
// on top of a coarse, best-effort timer.
//
// Every tick advances a nominal elapsed time by exactly one interval and
// compares it with the wall-clock time measured since start. The next tick
// is scheduled after interval minus that drift, so a late tick is followed
// by an early one and the error never accumulates.
package tock

import (
	"log/slog"
	"sync"
	"time"

	"tock/internal/hosttime"
)

// Clock is a stopwatch (CountUp) or countdown (CountDown) timer.
type Clock struct {
	mu sync.Mutex // protects the clock state

	// configuration, fixed at construction
	mode       Mode
	interval   time.Duration
	bootstrap  time.Duration
	src        hosttime.Source
	log        *slog.Logger
	onTick     func(*Clock)
	onComplete func()
	observers  []Observer

	// run state
	state     State
	run       uint64        // incremented on every Start
	startedAt time.Time     // wall-clock reference for drift
	duration  time.Duration // countdown target
	ticks     int64
	nominal   time.Duration // ticks * interval, never the measured delay
	drift     time.Duration
	display   string
	final     time.Duration // measured time frozen at stop or completion
	pending   *pendingTick  // the one outstanding tick, nil when none
	done      chan struct{} // closed when the current run leaves Running
}

// pendingTick identifies one scheduled tick. A firing tick acts only if it
// is still the clock's pending tick, so a canceled tick is inert even if
// the host fires it anyway.
type pendingTick struct {
	run    uint64
	handle hosttime.Handle
}

// New creates an idle clock from cfg.
func New(cfg Config, opts ...Option) *Clock {
	c := &Clock{
		mode:      cfg.Mode(),
		interval:  cfg.Interval(),
		bootstrap: cfg.Bootstrap(),
		display:   "0.0",
		done:      make(chan struct{}),
	}
	close(c.done)

	// clamp to the defaults if the config was built by hand
	if c.interval <= 0 {
		c.interval = DefaultConfig().Interval()
	}
	if c.bootstrap <= 0 {
		c.bootstrap = DefaultConfig().Bootstrap()
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = hosttime.NewReal()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With(slog.String("mode", c.mode.String()))
	return c
}

// Reset cancels any pending tick and returns the clock to Idle with zero
// elapsed time. Configuration and callbacks are kept.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.cancelLocked()
	c.leaveRunningLocked()
	c.state = StateIdle
	c.startedAt = time.Time{}
	c.ticks = 0
	c.nominal = 0
	c.drift = 0
	c.display = "0.0"
	c.final = 0
	ev := c.eventLocked(EventReset, c.src.Now(), 0)
	c.mu.Unlock()

	c.log.Debug("clock reset")
	c.emit(ev)
}

// Start begins a new run from zero. d is the countdown duration and is
// ignored in CountUp mode. Starting a running clock restarts it.
// The returned channel is this run's Done channel.
func (c *Clock) Start(d time.Duration) <-chan struct{} {
	c.mu.Lock()
	c.cancelLocked()
	c.leaveRunningLocked()

	c.run++
	c.state = StateRunning
	c.startedAt = c.src.Now()
	if c.mode == CountDown {
		c.duration = d
	}
	c.ticks = 0
	c.nominal = 0
	c.drift = 0
	c.display = "0.0"
	c.done = make(chan struct{})
	done := c.done
	c.armLocked(c.bootstrap)
	ev := c.eventLocked(EventStart, c.startedAt, c.bootstrap)
	c.mu.Unlock()

	c.log.Info("clock started",
		slog.Duration("interval", c.interval),
		slog.Duration("duration", d),
	)
	c.emit(ev)
	return done
}

// Stop freezes the measured elapsed time and cancels the pending tick.
// It does nothing if the clock is not running.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	now := c.src.Now()
	c.final = now.Sub(c.startedAt)
	c.cancelLocked()
	c.leaveRunningLocked()
	c.state = StateStopped
	ev := c.eventLocked(EventStop, now, 0)
	final := c.final
	c.mu.Unlock()

	c.log.Info("clock stopped", slog.String("lap", FormatDuration(final)))
	c.emit(ev)
}

// Lap returns the current time without side effects. While running it is
// measured from the wall clock: time since start when counting up, time
// remaining when counting down. Otherwise it is the time frozen by the
// last Stop or completion.
func (c *Clock) Lap() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return c.final
	}
	measured := c.src.Now().Sub(c.startedAt)
	if c.mode == CountDown {
		return c.duration - measured
	}
	return measured
}

// fire is the body of every scheduled tick. The Tick event is emitted
// after onTick, once it is known whether the next tick was scheduled.
func (c *Clock) fire(p *pendingTick) {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		return
	}
	c.pending = nil

	c.ticks++
	c.nominal += c.interval
	c.display = tenths(c.ticks)
	now := c.src.Now()
	c.drift = now.Sub(c.startedAt) - c.nominal
	ev := c.eventLocked(EventTick, now, 0)
	onTick := c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(c)
	}

	c.mu.Lock()
	// the callback may have stopped, reset or restarted the clock
	if c.state != StateRunning || c.run != p.run || c.pending != nil {
		c.mu.Unlock()
		c.emitTick(ev)
		return
	}

	if c.mode == CountDown && c.duration-c.nominal < 0 {
		c.final = 0
		c.state = StateStopped
		complete := c.eventLocked(EventComplete, now, 0)
		onComplete := c.onComplete
		done := c.done
		c.mu.Unlock()

		c.emitTick(ev)
		c.log.Info("countdown complete", slog.Int64("ticks", complete.Ticks))
		c.emit(complete)
		if onComplete != nil {
			onComplete()
		}
		// waiters on Done observe the completion callback as finished
		close(done)
		return
	}

	ev.Delay = c.nextDelayLocked()
	ev.Rearmed = true
	c.armLocked(ev.Delay)
	c.mu.Unlock()

	c.emitTick(ev)
}

func (c *Clock) emitTick(ev Event) {
	c.log.Debug("tick",
		slog.Int64("ticks", ev.Ticks),
		slog.Duration("drift", ev.Drift),
		slog.Duration("next", ev.Delay),
		slog.Bool("rearmed", ev.Rearmed),
	)
	c.emit(ev)
}

// nextDelayLocked is the drift-corrected delay to the next tick. A tick
// that is already overdue is requested with zero delay.
func (c *Clock) nextDelayLocked() time.Duration {
	delay := c.interval - c.drift
	if delay < 0 {
		return 0
	}
	return delay
}

func (c *Clock) armLocked(delay time.Duration) {
	p := &pendingTick{run: c.run}
	p.handle = c.src.AfterFunc(delay, func() { c.fire(p) })
	c.pending = p
}

func (c *Clock) cancelLocked() {
	if c.pending == nil {
		return
	}
	// Stop reports false if the tick already fired; fire will ignore it.
	c.pending.handle.Stop()
	c.pending = nil
}

func (c *Clock) leaveRunningLocked() {
	if c.state == StateRunning {
		close(c.done)
	}
}

func (c *Clock) eventLocked(kind EventKind, now time.Time, delay time.Duration) Event {
	ev := Event{
		Time:    now,
		Kind:    kind,
		Mode:    c.mode,
		Ticks:   c.ticks,
		Nominal: c.nominal,
		Drift:   c.drift,
		Delay:   delay,
	}
	if !c.startedAt.IsZero() {
		ev.Measured = now.Sub(c.startedAt)
	}
	return ev
}

func (c *Clock) emit(ev Event) {
	for _, o := range c.observers {
		o.Observe(ev)
	}
}

// State returns the lifecycle state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a tick loop is active.
func (c *Clock) Running() bool {
	return c.State() == StateRunning
}

// Mode returns the counting direction.
func (c *Clock) Mode() Mode {
	return c.mode
}

// Interval returns the nominal tick period.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Elapsed returns the nominal elapsed time, ticks times interval.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nominal
}

// Ticks returns the number of ticks in the current or last run.
func (c *Clock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Display returns the tick count in tenths, e.g. "4.2".
func (c *Clock) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Drift returns measured minus nominal time at the last tick.
func (c *Clock) Drift() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drift
}

// Done returns a channel closed when the current run stops, completes or
// is reset. It is already closed before the first Start.
func (c *Clock) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
