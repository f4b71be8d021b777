package tock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tock/internal/hosttime"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newManualClock(cfg Config, opts ...Option) (*Clock, *hosttime.Manual) {
	src := hosttime.NewManual(epoch)
	return New(cfg, append([]Option{WithSource(src)}, opts...)...), src
}

func stopwatchConfig(intervalMS int) Config {
	cfg := DefaultConfig()
	cfg.IntervalMS = intervalMS
	return cfg
}

func countdownConfig(intervalMS int) Config {
	cfg := stopwatchConfig(intervalMS)
	cfg.Countdown = true
	return cfg
}

// leakySource ignores cancellation, like a host that fires a callback it
// already handed to its scheduler.
type leakySource struct {
	*hosttime.Manual
}

type leakyHandle struct{}

func (leakyHandle) Stop() bool { return false }

func (s leakySource) AfterFunc(d time.Duration, f func()) hosttime.Handle {
	s.Manual.AfterFunc(d, f)
	return leakyHandle{}
}

// =============================================================================
// Tick loop
// =============================================================================

func TestClock_NominalIsTicksTimesInterval(t *testing.T) {
	for _, ms := range []int{10, 25, 50, 100} {
		c, src := newManualClock(stopwatchConfig(ms))
		c.Start(0)
		src.Advance(time.Second)

		interval := time.Duration(ms) * time.Millisecond
		assert.Equal(t, int64(1000/ms), c.Ticks(), "interval %dms", ms)
		assert.Equal(t, time.Duration(c.Ticks())*interval, c.Elapsed(), "interval %dms", ms)
		assert.Equal(t, time.Duration(0), c.Drift(), "interval %dms", ms)
	}
}

func TestClock_BootstrapThenCatchUp(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(10))
	c.Start(0)

	assert.Equal(t, 0, src.Advance(99*time.Millisecond))
	assert.Equal(t, int64(0), c.Ticks())

	// the first tick is 90ms behind, so the next nine fire immediately
	assert.Equal(t, 10, src.Advance(time.Millisecond))
	assert.Equal(t, int64(10), c.Ticks())
	assert.Equal(t, "1.0", c.Display())
	assert.Equal(t, time.Duration(0), c.Drift())
	assert.Equal(t, 1, src.Pending())
}

func TestClock_DriftDoesNotAccumulate(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(10))
	src.SetLatency(3 * time.Millisecond)
	c.Start(0)

	src.Advance(time.Second)

	// every firing is 3ms late, yet the error stays at one firing's worth
	// instead of growing by 3ms per tick
	assert.Equal(t, int64(99), c.Ticks())
	assert.Equal(t, 990*time.Millisecond, c.Elapsed())
	assert.Equal(t, 3*time.Millisecond, c.Drift())
	assert.Equal(t, time.Second, c.Lap())
}

func TestClock_Display(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(100))
	assert.Equal(t, "0.0", c.Display())

	c.Start(0)
	assert.Equal(t, "0.0", c.Display())

	src.Advance(300 * time.Millisecond)
	assert.Equal(t, "0.3", c.Display())

	src.Advance(700 * time.Millisecond)
	assert.Equal(t, "1.0", c.Display())
}

func TestClock_OnTickReceivesClock(t *testing.T) {
	var laps []time.Duration
	var displays []string
	c, src := newManualClock(stopwatchConfig(100), WithOnTick(func(c *Clock) {
		laps = append(laps, c.Lap())
		displays = append(displays, c.Display())
	}))
	c.Start(0)
	src.Advance(300 * time.Millisecond)

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, laps)
	assert.Equal(t, []string{"0.1", "0.2", "0.3"}, displays)
}

// =============================================================================
// Countdown
// =============================================================================

func TestClock_CountdownCompletesOnce(t *testing.T) {
	var completions, ticks int
	c, src := newManualClock(countdownConfig(100),
		WithOnTick(func(*Clock) { ticks++ }),
		WithOnComplete(func() { completions++ }),
	)
	c.Start(5 * time.Second)

	src.Advance(10 * time.Second)

	assert.Equal(t, 1, completions)
	assert.Equal(t, 51, ticks)
	assert.Equal(t, 5100*time.Millisecond, c.Elapsed())
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, time.Duration(0), c.Lap())
	assert.Equal(t, 0, src.Pending())

	src.Advance(10 * time.Second)
	assert.Equal(t, 1, completions)
}

func TestClock_CountdownNotCompleteAtExactlyZero(t *testing.T) {
	completions := 0
	c, src := newManualClock(countdownConfig(100), WithOnComplete(func() { completions++ }))
	c.Start(500 * time.Millisecond)

	src.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, completions)
	assert.True(t, c.Running())

	src.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, completions)
	assert.False(t, c.Running())
}

func TestClock_CountdownLap(t *testing.T) {
	c, src := newManualClock(countdownConfig(100))
	c.Start(5 * time.Second)

	src.Advance(1250 * time.Millisecond)
	assert.Equal(t, 3750*time.Millisecond, c.Lap())

	c.Stop()
	assert.Equal(t, 1250*time.Millisecond, c.Lap())
}

func TestClock_CountdownZeroDuration(t *testing.T) {
	completions := 0
	c, src := newManualClock(countdownConfig(100), WithOnComplete(func() { completions++ }))
	c.Start(0)

	src.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, completions)
	assert.Equal(t, int64(1), c.Ticks())
}

func TestClock_ManualStopDoesNotComplete(t *testing.T) {
	completions := 0
	c, src := newManualClock(countdownConfig(100), WithOnComplete(func() { completions++ }))
	c.Start(time.Second)

	src.Advance(500 * time.Millisecond)
	c.Stop()
	src.Advance(time.Second)

	assert.Equal(t, 0, completions)
}

func TestClock_CountUpNeverCompletes(t *testing.T) {
	completions := 0
	c, src := newManualClock(stopwatchConfig(100), WithOnComplete(func() { completions++ }))
	c.Start(time.Second)

	src.Advance(5 * time.Second)
	assert.Equal(t, 0, completions)
	assert.True(t, c.Running())
	assert.Equal(t, 5*time.Second, c.Lap())
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestClock_StopFreezesMeasuredTime(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(10))
	c.Start(0)

	src.Advance(1234 * time.Millisecond)
	c.Stop()

	assert.Equal(t, 1234*time.Millisecond, c.Lap())
	assert.Equal(t, 1230*time.Millisecond, c.Elapsed())
	assert.Equal(t, 0, src.Pending())

	src.Advance(time.Second)
	assert.Equal(t, 1234*time.Millisecond, c.Lap())
	assert.Equal(t, int64(123), c.Ticks())
}

func TestClock_StopWhenNotRunningIsNoOp(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(10))
	c.Stop()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, time.Duration(0), c.Lap())

	c.Start(0)
	src.Advance(500 * time.Millisecond)
	c.Stop()
	src.Advance(500 * time.Millisecond)
	c.Stop()

	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 500*time.Millisecond, c.Lap())
}

func TestClock_DoubleStartLeavesOnePendingTick(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(10))
	c.Start(0)
	src.Advance(50 * time.Millisecond)
	c.Start(0)

	assert.Equal(t, 1, src.Pending())

	src.Advance(100 * time.Millisecond)
	assert.Equal(t, int64(10), c.Ticks())
	assert.Equal(t, 1, src.Pending())
}

func TestClock_ResetAfterStart(t *testing.T) {
	ticks := 0
	c, src := newManualClock(stopwatchConfig(10), WithOnTick(func(*Clock) { ticks++ }))
	c.Start(0)
	src.Advance(200 * time.Millisecond)
	require.NotZero(t, ticks)

	c.Reset()
	seen := ticks

	assert.False(t, c.Running())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, time.Duration(0), c.Elapsed())
	assert.Equal(t, "0.0", c.Display())
	assert.Equal(t, time.Duration(0), c.Lap())
	assert.Equal(t, 0, src.Pending())

	src.Advance(time.Second)
	assert.Equal(t, seen, ticks)

	c.Reset()
	assert.Equal(t, StateIdle, c.State())
}

func TestClock_RestartAfterStop(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(100))
	c.Start(0)
	src.Advance(500 * time.Millisecond)
	c.Stop()

	c.Start(0)
	assert.Equal(t, int64(0), c.Ticks())
	assert.Equal(t, "0.0", c.Display())

	src.Advance(200 * time.Millisecond)
	assert.Equal(t, int64(2), c.Ticks())
	assert.Equal(t, 200*time.Millisecond, c.Lap())
}

func TestClock_CanceledTickIsInert(t *testing.T) {
	ticks := 0
	src := leakySource{hosttime.NewManual(epoch)}
	c := New(stopwatchConfig(100), WithSource(src), WithOnTick(func(*Clock) { ticks++ }))

	c.Start(0)
	c.Stop()
	src.Advance(time.Second)
	assert.Equal(t, 0, ticks)

	// a restart leaves the first chain's tick in the host; only one chain runs
	c.Start(0)
	src.Advance(50 * time.Millisecond)
	c.Start(0)
	src.Advance(time.Second)
	assert.Equal(t, int64(10), c.Ticks())
	assert.Equal(t, 10, ticks)
}

func TestClock_OnTickMayStopClock(t *testing.T) {
	c, src := newManualClock(stopwatchConfig(100), WithOnTick(func(c *Clock) {
		if c.Ticks() == 5 {
			c.Stop()
		}
	}))
	c.Start(0)
	src.Advance(time.Second)

	assert.Equal(t, int64(5), c.Ticks())
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 0, src.Pending())
}

func TestClock_OnTickMayRestartClock(t *testing.T) {
	restarted := false
	c, src := newManualClock(stopwatchConfig(100), WithOnTick(func(c *Clock) {
		if !restarted && c.Ticks() == 3 {
			restarted = true
			c.Start(0)
		}
	}))
	c.Start(0)
	src.Advance(500 * time.Millisecond)

	assert.Equal(t, 1, src.Pending())
	assert.Equal(t, int64(2), c.Ticks())
}

func TestClock_Done(t *testing.T) {
	c, src := newManualClock(countdownConfig(100))

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed before Start")
	}

	c.Start(200 * time.Millisecond)
	done := c.Done()
	select {
	case <-done:
		t.Fatal("Done should be open while running")
	default:
	}

	src.Advance(time.Second)
	select {
	case <-done:
	default:
		t.Fatal("Done should be closed after completion")
	}
}

func TestClock_Events(t *testing.T) {
	var kinds []EventKind
	var last Event
	c, src := newManualClock(countdownConfig(100), WithObserver(ObserverFunc(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		last = ev
	})))
	c.Start(300 * time.Millisecond)
	src.Advance(time.Second)
	c.Reset()

	assert.Equal(t, []EventKind{
		EventStart, EventTick, EventTick, EventTick, EventTick, EventComplete, EventReset,
	}, kinds)
	assert.Equal(t, EventReset, last.Kind)
	assert.Equal(t, CountDown, last.Mode)
}

func TestClock_TickEventCarriesCorrection(t *testing.T) {
	var ticks []Event
	c, src := newManualClock(stopwatchConfig(10), WithObserver(ObserverFunc(func(ev Event) {
		if ev.Kind == EventTick {
			ticks = append(ticks, ev)
		}
	})))
	c.Start(0)
	src.Advance(110 * time.Millisecond)

	require.Len(t, ticks, 11)
	first := ticks[0]
	assert.Equal(t, 90*time.Millisecond, first.Drift)
	assert.Equal(t, time.Duration(0), first.Delay)
	assert.Equal(t, 100*time.Millisecond, first.Measured)

	steady := ticks[10]
	assert.Equal(t, time.Duration(0), steady.Drift)
	assert.Equal(t, 10*time.Millisecond, steady.Delay)
}

func TestClock_FinalCountdownTickIsNotRearmed(t *testing.T) {
	var ticks []Event
	c, src := newManualClock(countdownConfig(100), WithObserver(ObserverFunc(func(ev Event) {
		if ev.Kind == EventTick {
			ticks = append(ticks, ev)
		}
	})))
	c.Start(200 * time.Millisecond)
	src.Advance(time.Second)

	require.Len(t, ticks, 3)
	for _, ev := range ticks[:2] {
		assert.True(t, ev.Rearmed)
		assert.Equal(t, 100*time.Millisecond, ev.Delay)
	}
	last := ticks[2]
	assert.False(t, last.Rearmed)
	assert.Equal(t, time.Duration(0), last.Delay)
	assert.Equal(t, 0, src.Pending())
}

func TestClock_TickStoppedByCallbackIsNotRearmed(t *testing.T) {
	var kinds []EventKind
	var last Event
	c, src := newManualClock(stopwatchConfig(100),
		WithOnTick(func(c *Clock) {
			if c.Ticks() == 2 {
				c.Stop()
			}
		}),
		WithObserver(ObserverFunc(func(ev Event) {
			kinds = append(kinds, ev.Kind)
			if ev.Kind == EventTick {
				last = ev
			}
		})),
	)
	c.Start(0)
	src.Advance(time.Second)

	assert.Equal(t, []EventKind{EventStart, EventTick, EventStop, EventTick}, kinds)
	assert.Equal(t, int64(2), last.Ticks)
	assert.False(t, last.Rearmed)
	assert.Equal(t, time.Duration(0), last.Delay)
}

func TestClock_StartReturnsRunDone(t *testing.T) {
	c, _ := newManualClock(stopwatchConfig(100))

	first := c.Start(0)
	second := c.Start(0)

	select {
	case <-first:
	default:
		t.Fatal("restart should close the previous run's channel")
	}
	select {
	case <-second:
		t.Fatal("current run's channel should be open")
	default:
	}
	assert.Equal(t, second, c.Done())

	c.Stop()
	select {
	case <-second:
	default:
		t.Fatal("Stop should close the run's channel")
	}
}

// =============================================================================
// Real source
// =============================================================================

func TestClock_RealSource(t *testing.T) {
	cfg := stopwatchConfig(10)
	cfg.BootstrapMS = 10

	var mu sync.Mutex
	var seen []string
	var fired atomic.Int64
	c := New(cfg, WithOnTick(func(c *Clock) {
		fired.Add(1)
		mu.Lock()
		seen = append(seen, c.Display())
		mu.Unlock()
	}))

	c.Start(0)
	time.Sleep(200 * time.Millisecond)
	c.Stop()
	// let a tick that was already running finish its callback
	time.Sleep(20 * time.Millisecond)

	lap := c.Lap()
	assert.GreaterOrEqual(t, lap, 200*time.Millisecond)
	assert.Less(t, lap, time.Second)
	assert.Positive(t, fired.Load())
	assert.Equal(t, fired.Load(), c.Ticks())

	after := fired.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, fired.Load(), "no tick may fire after Stop")
	assert.Equal(t, lap, c.Lap())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, "0.1", seen[0])
}
