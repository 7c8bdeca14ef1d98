package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateChange   EventType = "state_change"
	EventStepEnter     EventType = "step_enter"
	EventCycleComplete EventType = "cycle_complete"
	EventTick          EventType = "tick"
	EventRejected      EventType = "rejected"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Sequence  string    `json:"sequence"`
}

// StateEvent is emitted on every effective run-state transition.
type StateEvent struct {
	EventBase
	From    RunState `json:"from"`
	To      RunState `json:"to"`
	Command Command  `json:"command"`
}

// StepEvent is emitted when the interpreter dispatches a step.
type StepEvent struct {
	EventBase
	Index  int      `json:"index"`
	StepID string   `json:"step_id"`
	Kind   StepType `json:"kind"`
}

// CycleEvent is emitted when a full traversal of the sequence completes.
type CycleEvent struct {
	EventBase
	Cycles CycleCount `json:"cycles"`
}

// TickEvent is emitted after each applied tick.
type TickEvent struct {
	EventBase
	Number uint64        `json:"number"`
	A      ActuatorState `json:"a"`
	B      ActuatorState `json:"b"`
}

// RejectEvent is emitted when a command is refused (locked, invalid input).
type RejectEvent struct {
	EventBase
	Operation string `json:"operation"`
	Err       error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously under the engine lock and must not call back into the engine.
type LifecycleHooks struct {
	OnStateChange   func(context.Context, *StateEvent)
	OnStepEnter     func(context.Context, *StepEvent)
	OnCycleComplete func(context.Context, *CycleEvent)
	OnTick          func(context.Context, *TickEvent)
	OnRejected      func(context.Context, *RejectEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateChange:   chain(h.OnStateChange, other.OnStateChange),
		OnStepEnter:     chain(h.OnStepEnter, other.OnStepEnter),
		OnCycleComplete: chain(h.OnCycleComplete, other.OnCycleComplete),
		OnTick:          chain(h.OnTick, other.OnTick),
		OnRejected:      chain(h.OnRejected, other.OnRejected),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
