package domain

import (
	"fmt"
	"math"
)

// DefaultSequenceName is used when a sequence is created without a name.
const DefaultSequenceName = "sequence_01"

// Limits bounds the numeric fields a step may carry.
type Limits struct {
	StrokeMin float64
	StrokeMax float64
}

// DefaultLimits is the 0-30 mm stroke of the reference rig.
var DefaultLimits = Limits{StrokeMin: 0, StrokeMax: 30}

// Sequence is the ordered, uniquely identified list of steps that defines
// one test cycle.
type Sequence struct {
	Name  string
	Steps []Step
}

// Clone returns a copy whose step slice can be mutated independently.
func (s Sequence) Clone() Sequence {
	steps := make([]Step, len(s.Steps))
	copy(steps, s.Steps)
	return Sequence{Name: s.Name, Steps: steps}
}

// Index returns the position of the step with the given id, or -1.
func (s Sequence) Index(id string) int {
	for i, st := range s.Steps {
		if st.StepID() == id {
			return i
		}
	}
	return -1
}

// DefaultSequence returns the six-step A/B stroke cycle the rig ships with.
func DefaultSequence() Sequence {
	return Sequence{
		Name: DefaultSequenceName,
		Steps: []Step{
			MoveA("1", 30, 50, 100),
			Delay{ID: "2", Time: 1},
			MoveA("3", 0, 50, 100),
			MoveB("4", 30, 50, 100),
			Delay{ID: "5", Time: 1},
			MoveB("6", 0, 50, 100),
		},
	}
}

// ValidateStep checks a single step against the limits.
func ValidateStep(s Step, lim Limits) error {
	if s == nil {
		return &StepError{Reason: "step is nil"}
	}
	if s.StepID() == "" {
		return &StepError{Field: "id", Reason: "required"}
	}
	switch v := s.(type) {
	case Move:
		if v.Axis != AxisA && v.Axis != AxisB {
			return &StepError{StepID: v.ID, Field: "type", Reason: fmt.Sprintf("unknown axis %d", v.Axis)}
		}
		for _, f := range []struct {
			name string
			v    float64
		}{{"pos", v.Pos}, {"speed", v.Speed}, {"force", v.Force}} {
			if !finite(f.v) {
				return &StepError{StepID: v.ID, Field: f.name, Reason: "must be a finite number"}
			}
		}
		if v.Pos < lim.StrokeMin || v.Pos > lim.StrokeMax {
			return &StepError{StepID: v.ID, Field: "pos", Reason: fmt.Sprintf("%.2f outside stroke [%.2f, %.2f]", v.Pos, lim.StrokeMin, lim.StrokeMax)}
		}
		if v.Speed < 0 || v.Speed > 100 {
			return &StepError{StepID: v.ID, Field: "speed", Reason: "must be within 0-100"}
		}
		if v.Force < 0 || v.Force > 100 {
			return &StepError{StepID: v.ID, Field: "force", Reason: "must be within 0-100"}
		}
	case Delay:
		if !finite(v.Time) {
			return &StepError{StepID: v.ID, Field: "time", Reason: "must be a finite number"}
		}
		if v.Time < 0 {
			return &StepError{StepID: v.ID, Field: "time", Reason: "must not be negative"}
		}
	default:
		return &StepError{StepID: s.StepID(), Reason: fmt.Sprintf("unknown step %T", s)}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ValidateSteps checks every step and id uniqueness.
// All failures are reported together.
func ValidateSteps(steps []Step, lim Limits) error {
	var errs []error
	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if err := ValidateStep(s, lim); err != nil {
			if se, ok := err.(*StepError); ok {
				se.Index = i + 1
			}
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[s.StepID()]; dup {
			errs = append(errs, &StepError{Index: i + 1, StepID: s.StepID(), Field: "id", Reason: "duplicate id"})
			continue
		}
		seen[s.StepID()] = struct{}{}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &AggregateError{Errors: errs}
	}
}
