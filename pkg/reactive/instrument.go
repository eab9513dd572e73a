package reactive

import "time"

// EventKind identifies what happened in the runtime.
type EventKind uint8

const (
	EventCreate EventKind = iota + 1
	EventWrite
	EventRecompute
	EventRun
	EventFlush
	EventDispose
	EventBudgetExceeded
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRecompute:
		return "recompute"
	case EventRun:
		return "run"
	case EventFlush:
		return "flush"
	case EventDispose:
		return "dispose"
	case EventBudgetExceeded:
		return "budget_exceeded"
	default:
		return "unknown"
	}
}

// Event describes one step of the runtime for instrumentation.
type Event struct {
	Kind   EventKind
	NodeID uint64
	Name   string
	Node   NodeKind

	// Start and Duration are set for recompute, run and flush events.
	Start    time.Time
	Duration time.Duration

	// Runs is the number of effect and observer runs in a flush.
	Runs int

	// Err is the failure of a recompute, run or flush, if any.
	Err error
}

// Instrumentation receives runtime events. Observe is called synchronously
// on the runtime's goroutine and must not call back into the runtime.
type Instrumentation interface {
	Observe(Event)
}

// InstrumentationFunc adapts a function to the Instrumentation interface.
type InstrumentationFunc func(Event)

// Observe implements Instrumentation.
func (f InstrumentationFunc) Observe(ev Event) { f(ev) }
