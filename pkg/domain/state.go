package domain

import "fmt"

// RunState is the control mode of the engine.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// MarshalText renders the state as its upper-case name.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Locked reports whether the sequence and cycle total are read-only in this state.
func (s RunState) Locked() bool {
	return s != StateIdle
}

// Command is an operator control input to the run-state machine.
type Command string

const (
	CommandStart Command = "start"
	CommandPause Command = "pause"
	CommandStop  Command = "stop"
	CommandReset Command = "reset"
)

// Transition is one row of the run-state table.
type Transition struct {
	To      RunState
	Allowed bool // false means the command is a no-op from this state
}

// transitions is the complete run-state table. Reset from IDLE keeps IDLE but
// is still allowed so its zeroing applies.
var transitions = map[RunState]map[Command]Transition{
	StateIdle: {
		CommandStart: {To: StateRunning, Allowed: true},
		CommandPause: {To: StateIdle, Allowed: false},
		CommandStop:  {To: StateIdle, Allowed: false},
		CommandReset: {To: StateIdle, Allowed: true},
	},
	StateRunning: {
		CommandStart: {To: StateRunning, Allowed: false},
		CommandPause: {To: StatePaused, Allowed: true},
		CommandStop:  {To: StateIdle, Allowed: true},
		CommandReset: {To: StateIdle, Allowed: true},
	},
	StatePaused: {
		CommandStart: {To: StateRunning, Allowed: true},
		CommandPause: {To: StatePaused, Allowed: false},
		CommandStop:  {To: StateIdle, Allowed: true},
		CommandReset: {To: StateIdle, Allowed: true},
	},
}

// Next looks up the transition for cmd from s.
func (s RunState) Next(cmd Command) Transition {
	row, ok := transitions[s]
	if !ok {
		return Transition{To: s}
	}
	t, ok := row[cmd]
	if !ok {
		return Transition{To: s}
	}
	return t
}

// ActuatorState is the observable state of one axis.
type ActuatorState struct {
	Pos      float64 `json:"pos"`
	Target   float64 `json:"target"`
	Force    float64 `json:"force"`
	ForceOut float64 `json:"force_out"`
}

// CycleCount tracks completed traversals of the sequence.
type CycleCount struct {
	Current uint64 `json:"current"`
	Total   uint64 `json:"total"`
}

// DefaultTotalCycles is the operator total used when none is configured.
const DefaultTotalCycles uint64 = 1000

// NoStep is the cursor value meaning "not started" or "stopped".
const NoStep = -1
