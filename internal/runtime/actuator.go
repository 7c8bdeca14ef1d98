package runtime

import (
	"math"

	"github.com/aretw0/tubelife/pkg/domain"
)

// Noise is a source of uniform samples in [0, 1). *rand.Rand satisfies it.
type Noise interface {
	Float64() float64
}

// Law advances one axis by one tick. Implementations consume the target held
// in the state and produce the next pos/force/forceOut readings.
type Law interface {
	Next(s domain.ActuatorState) domain.ActuatorState
}

// LawFunc adapts a plain function to a Law.
type LawFunc func(domain.ActuatorState) domain.ActuatorState

func (f LawFunc) Next(s domain.ActuatorState) domain.ActuatorState { return f(s) }

// Simulated law constants of the reference rig.
const (
	DefaultConvergence = 0.15
	SnapDistance       = 0.1
	HighBandDistance   = 5.0
	DriveDistance      = 0.5
)

// SimulatedLaw is a first-order approach to target with banded force noise.
// It stands in for a real closed-loop controller.
type SimulatedLaw struct {
	K     float64
	Noise Noise
}

// NewSimulatedLaw returns the reference law with convergence k.
func NewSimulatedLaw(k float64, noise Noise) *SimulatedLaw {
	if k <= 0 || k > 1 {
		k = DefaultConvergence
	}
	return &SimulatedLaw{K: k, Noise: noise}
}

func (l *SimulatedLaw) Next(s domain.ActuatorState) domain.ActuatorState {
	diff := s.Target - s.Pos
	dist := math.Abs(diff)

	if dist < SnapDistance {
		s.Pos = s.Target
	} else {
		s.Pos += diff * l.K
	}

	switch {
	case dist > HighBandDistance:
		s.Force = 45 + l.Noise.Float64()*10
	case dist > SnapDistance:
		s.Force = 20 + l.Noise.Float64()*5
	default:
		s.Force = l.Noise.Float64() * 1.5
	}

	if dist > DriveDistance {
		s.ForceOut = 80 + l.Noise.Float64()*10
	} else {
		s.ForceOut = 0
	}
	return s
}

// MoveCommand is the last motion request handed to an actuator. Speed and
// Force are percentage limits a real controller honors; the simulated law
// records them only.
type MoveCommand struct {
	Pos   float64
	Speed float64
	Force float64
}

// Actuator owns the state of one axis.
type Actuator struct {
	axis    domain.Axis
	law     Law
	limits  domain.Limits
	state   domain.ActuatorState
	command MoveCommand
}

// NewActuator builds an axis at rest at position 0.
func NewActuator(axis domain.Axis, law Law, limits domain.Limits) *Actuator {
	return &Actuator{axis: axis, law: law, limits: limits}
}

// Axis returns which axis this actuator drives.
func (a *Actuator) Axis() domain.Axis { return a.axis }

// SetTarget accepts a new motion request. The target is clamped to the stroke.
func (a *Actuator) SetTarget(cmd MoveCommand) {
	cmd.Pos = clamp(cmd.Pos, a.limits.StrokeMin, a.limits.StrokeMax)
	a.command = cmd
	a.state.Target = cmd.Pos
}

// Update applies one tick of the law.
func (a *Actuator) Update() {
	next := a.law.Next(a.state)
	next.Pos = clamp(next.Pos, a.limits.StrokeMin, a.limits.StrokeMax)
	next.Target = a.state.Target
	next.Force = clamp(next.Force, 0, 100)
	next.ForceOut = clamp(next.ForceOut, 0, 100)
	a.state = next
}

// Reset zeroes position, target and force readings.
func (a *Actuator) Reset() {
	a.state = domain.ActuatorState{}
	a.command = MoveCommand{}
}

// State returns a copy of the current readings.
func (a *Actuator) State() domain.ActuatorState { return a.state }

// Command returns the last accepted motion request.
func (a *Actuator) Command() MoveCommand { return a.command }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
