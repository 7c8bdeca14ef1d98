package domain

import "time"

// LogCategory groups operator-facing log messages.
type LogCategory string

const (
	LogSystem LogCategory = "system"
	LogStep   LogCategory = "step"
	LogCycle  LogCategory = "cycle"
	LogIO     LogCategory = "io"
	LogWarn   LogCategory = "warn"
	LogError  LogCategory = "error"
)

// LogEntry is one line of the operator event log.
type LogEntry struct {
	// Seq increases by one per stored entry and survives a clear.
	Seq       uint64      `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Message   string      `json:"message"`
	Category  LogCategory `json:"category"`
}

// Snapshot is a read-only copy of everything the display layer needs.
type Snapshot struct {
	State    RunState      `json:"state"`
	Locked   bool          `json:"locked"`
	Cursor   int           `json:"cursor"`
	Cycles   CycleCount    `json:"cycles"`
	A        ActuatorState `json:"a"`
	B        ActuatorState `json:"b"`
	HistoryA []float64     `json:"history_a"`
	HistoryB []float64     `json:"history_b"`
	Log      []LogEntry    `json:"log"`
	Sequence Sequence      `json:"-"`
	Ticks    uint64        `json:"ticks"`
}

// CurrentStep returns the step under the cursor, or nil.
func (s Snapshot) CurrentStep() Step {
	if s.Cursor < 0 || s.Cursor >= len(s.Sequence.Steps) {
		return nil
	}
	return s.Sequence.Steps[s.Cursor]
}
