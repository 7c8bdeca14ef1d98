package runtime

import (
	"fmt"
	"math"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Decision is a pacer verdict for the current tick.
type Decision int

const (
	Hold Decision = iota
	Proceed
	TimedOut
)

// Progress is what a pacer sees when deciding whether to leave the current step.
type Progress struct {
	Cursor  int
	Step    domain.Step // nil before the first step
	Elapsed time.Duration
	A       domain.ActuatorState
	B       domain.ActuatorState
}

// Axis returns the readings of the given axis.
func (p Progress) Axis(ax domain.Axis) domain.ActuatorState {
	if ax == domain.AxisB {
		return p.B
	}
	return p.A
}

// Pacer decides when the interpreter advances to the next step.
type Pacer interface {
	Decide(p Progress) Decision
}

// PacerFunc adapts a plain function to a Pacer.
type PacerFunc func(Progress) Decision

func (f PacerFunc) Decide(p Progress) Decision { return f(p) }

// PacingMode names a built-in pacer.
type PacingMode string

const (
	PacingArrival PacingMode = "arrival"
	PacingRandom  PacingMode = "random"
)

// ParsePacingMode validates a configured pacing name.
func ParsePacingMode(s string) (PacingMode, error) {
	switch PacingMode(s) {
	case PacingArrival, PacingRandom:
		return PacingMode(s), nil
	case "":
		return PacingArrival, nil
	default:
		return "", fmt.Errorf("unknown pacing mode %q (want %q or %q)", s, PacingArrival, PacingRandom)
	}
}

// DefaultAdvanceProbability is the per-tick advance chance of the random pacer.
const DefaultAdvanceProbability = 0.05

// RandomPacer advances with a fixed probability per tick, ignoring step
// content. It reproduces the demo dashboard timing.
type RandomPacer struct {
	Probability float64
	Noise       Noise
}

func (p *RandomPacer) Decide(Progress) Decision {
	if p.Noise.Float64() > 1-p.Probability {
		return Proceed
	}
	return Hold
}

// Arrival pacing defaults, taken from the rig controller.
const (
	DefaultArrivalTolerance = 0.1
	DefaultMoveTimeout      = 30 * time.Second
)

// ArrivalPacer advances when a Move's axis has reached its target and when a
// Delay's time has elapsed. A Move that does not arrive within MoveTimeout is
// abandoned.
type ArrivalPacer struct {
	Tolerance   float64
	MoveTimeout time.Duration
}

func (p *ArrivalPacer) Decide(pr Progress) Decision {
	switch s := pr.Step.(type) {
	case nil:
		return Proceed
	case domain.Move:
		st := pr.Axis(s.Axis)
		if math.Abs(st.Target-st.Pos) < p.Tolerance {
			return Proceed
		}
		if p.MoveTimeout > 0 && pr.Elapsed >= p.MoveTimeout {
			return TimedOut
		}
		return Hold
	case domain.Delay:
		// Compared in seconds: long delays overflow a Duration.
		if pr.Elapsed.Seconds() >= s.Time {
			return Proceed
		}
		return Hold
	default:
		return Proceed
	}
}
