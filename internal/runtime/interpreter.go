package runtime

import (
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Advance describes a step dispatch produced by the interpreter.
type Advance struct {
	From     int
	Index    int
	Step     domain.Step
	Wrapped  bool // a full traversal completed
	TimedOut bool // the previous step was abandoned
}

// Interpreter walks a sequence under tick pressure.
type Interpreter struct {
	cursor  int
	elapsed time.Duration
	pacer   Pacer
}

// NewInterpreter returns an interpreter positioned before the first step.
func NewInterpreter(p Pacer) *Interpreter {
	return &Interpreter{cursor: domain.NoStep, pacer: p}
}

// Cursor returns the index of the step in progress, or domain.NoStep.
func (it *Interpreter) Cursor() int { return it.cursor }

// Elapsed returns the running time spent on the current step.
func (it *Interpreter) Elapsed() time.Duration { return it.elapsed }

// Reset moves the cursor back before the first step.
func (it *Interpreter) Reset() {
	it.cursor = domain.NoStep
	it.elapsed = 0
}

// Tick accounts dt of running time and asks the pacer whether to move on.
// It reports false when nothing was dispatched, including for an empty sequence.
func (it *Interpreter) Tick(steps []domain.Step, dt time.Duration, a, b domain.ActuatorState) (Advance, bool) {
	if len(steps) == 0 {
		return Advance{}, false
	}

	var current domain.Step
	if it.cursor >= 0 {
		it.elapsed += dt
		if it.cursor < len(steps) {
			current = steps[it.cursor]
		}
	}

	decision := it.pacer.Decide(Progress{
		Cursor:  it.cursor,
		Step:    current,
		Elapsed: it.elapsed,
		A:       a,
		B:       b,
	})
	if decision == Hold {
		return Advance{}, false
	}

	from := it.cursor
	next := (from + 1) % len(steps)
	it.cursor = next
	it.elapsed = 0

	return Advance{
		From:     from,
		Index:    next,
		Step:     steps[next],
		Wrapped:  next == 0 && from != domain.NoStep,
		TimedOut: decision == TimedOut,
	}, true
}
