package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// StepType is the wire tag of a step variant.
type StepType string

const (
	StepMoveA StepType = "MOVE_A"
	StepMoveB StepType = "MOVE_B"
	StepDelay StepType = "DELAY"
)

// Axis identifies one of the two actuators of the rig.
type Axis int

const (
	AxisA Axis = iota
	AxisB
)

func (a Axis) String() string {
	switch a {
	case AxisA:
		return "A"
	case AxisB:
		return "B"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Step is one instruction of a test sequence.
// The set of implementations is closed: Move and Delay.
type Step interface {
	StepID() string
	Type() StepType
	isStep()
}

// Move drives one axis to an absolute position.
// Pos is in millimeters, Speed and Force are percentages (0-100).
type Move struct {
	ID    string
	Axis  Axis
	Pos   float64
	Speed float64
	Force float64
}

func (m Move) StepID() string { return m.ID }

func (m Move) Type() StepType {
	if m.Axis == AxisB {
		return StepMoveB
	}
	return StepMoveA
}

func (Move) isStep() {}

// Delay holds the sequence for Time seconds.
type Delay struct {
	ID   string
	Time float64
}

func (d Delay) StepID() string { return d.ID }
func (Delay) Type() StepType   { return StepDelay }
func (Delay) isStep()          {}

// MoveA is shorthand for a Move on axis A.
func MoveA(id string, pos, speed, force float64) Move {
	return Move{ID: id, Axis: AxisA, Pos: pos, Speed: speed, Force: force}
}

// MoveB is shorthand for a Move on axis B.
func MoveB(id string, pos, speed, force float64) Move {
	return Move{ID: id, Axis: AxisB, Pos: pos, Speed: speed, Force: force}
}

// NewStepID returns a fresh random step identifier.
func NewStepID() string {
	return uuid.NewString()
}

// WithID returns a copy of s carrying the given id.
func WithID(s Step, id string) Step {
	switch v := s.(type) {
	case Move:
		v.ID = id
		return v
	case Delay:
		v.ID = id
		return v
	default:
		return s
	}
}

// StepPatch is a partial update of a step. Nil fields are left untouched.
// Pos, Speed and Force apply to Move steps only; Time applies to Delay only.
type StepPatch struct {
	Pos   *float64 `json:"pos,omitempty" mapstructure:"pos"`
	Speed *float64 `json:"speed,omitempty" mapstructure:"speed"`
	Force *float64 `json:"force,omitempty" mapstructure:"force"`
	Time  *float64 `json:"time,omitempty" mapstructure:"time"`
}

// IsEmpty reports whether the patch changes nothing.
func (p StepPatch) IsEmpty() bool {
	return p.Pos == nil && p.Speed == nil && p.Force == nil && p.Time == nil
}

// Apply merges the patch into s. The variant and id never change.
func (p StepPatch) Apply(s Step) (Step, error) {
	switch v := s.(type) {
	case Move:
		if p.Time != nil {
			return nil, &StepError{StepID: v.ID, Field: "time", Reason: "not a field of " + string(v.Type())}
		}
		if p.Pos != nil {
			v.Pos = *p.Pos
		}
		if p.Speed != nil {
			v.Speed = *p.Speed
		}
		if p.Force != nil {
			v.Force = *p.Force
		}
		return v, nil
	case Delay:
		switch {
		case p.Pos != nil:
			return nil, &StepError{StepID: v.ID, Field: "pos", Reason: "not a field of DELAY"}
		case p.Speed != nil:
			return nil, &StepError{StepID: v.ID, Field: "speed", Reason: "not a field of DELAY"}
		case p.Force != nil:
			return nil, &StepError{StepID: v.ID, Field: "force", Reason: "not a field of DELAY"}
		}
		if p.Time != nil {
			v.Time = *p.Time
		}
		return v, nil
	default:
		return nil, &StepError{Reason: fmt.Sprintf("unknown step %T", s)}
	}
}
