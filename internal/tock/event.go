// internal/tock/event.go

package tock

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects whether the clock counts up or down.
type Mode int

const (
	CountUp Mode = iota
	CountDown
)

func (m Mode) String() string {
	switch m {
	case CountUp:
		return "CountUp"
	case CountDown:
		return "CountDown"
	default:
		return "Unknown"
	}
}

// State is the lifecycle state of a Clock.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// EventKind represents the type of clock event
type EventKind int

const (
	EventStart EventKind = iota
	EventTick
	EventStop
	EventComplete
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "Start"
	case EventTick:
		return "Tick"
	case EventStop:
		return "Stop"
	case EventComplete:
		return "Complete"
	case EventReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// Event is emitted on every tick and lifecycle transition.
type Event struct {
	Time     time.Time
	Kind     EventKind
	Mode     Mode
	Ticks    int64
	Nominal  time.Duration // ticks * interval
	Measured time.Duration // wall clock since start
	Drift    time.Duration // Measured - Nominal
	Delay    time.Duration // next scheduled delay, zero when not re-armed
	Rearmed  bool          // a Tick scheduled the next tick
}

// Observer receives clock events. Observe is called outside the clock's
// lock and may be called from timer goroutines.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// String renders the event as one console line.
func (ev Event) String() string {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := (width - len(str)) / 2
		if spaces < 0 {
			spaces = 0
		}
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", max(width-(spaces+len(str)), 0))
	}

	return fmt.Sprintf("%s = Tick: %07d [%s] => nominal=%s measured=%s drift=%+dms next=%dms",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Ticks,
		center(ev.Kind.String(), 10),
		FormatDuration(ev.Nominal),
		FormatDuration(ev.Measured),
		ev.Drift.Milliseconds(),
		ev.Delay.Milliseconds(),
	)
}
