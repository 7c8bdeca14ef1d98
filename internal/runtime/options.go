package runtime

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/ports"
)

// DefaultTickPeriod is the scheduler period of the reference rig (20 Hz).
const DefaultTickPeriod = 50 * time.Millisecond

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithPacer replaces the step advancement policy.
func WithPacer(p Pacer) EngineOption {
	return func(e *Engine) {
		e.pacer = p
	}
}

// WithPacing selects a built-in pacer. Probability applies to PacingRandom,
// tolerance and timeout to PacingArrival; zero values pick the defaults.
func WithPacing(mode PacingMode, probability, tolerance float64, timeout time.Duration) EngineOption {
	return func(e *Engine) {
		e.pacing = pacingConfig{mode: mode, probability: probability, tolerance: tolerance, timeout: timeout}
	}
}

// WithLaw sets the same motion law on both axes.
func WithLaw(l Law) EngineOption {
	return func(e *Engine) {
		e.laws = [2]Law{l, l}
	}
}

// WithLaws sets a motion law per axis.
func WithLaws(a, b Law) EngineOption {
	return func(e *Engine) {
		e.laws = [2]Law{a, b}
	}
}

// WithConvergence sets the gain of the default simulated law.
func WithConvergence(k float64) EngineOption {
	return func(e *Engine) {
		e.convergence = k
	}
}

// WithTickPeriod sets the duration accounted for each tick.
func WithTickPeriod(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.tickPeriod = d
		}
	}
}

// WithLimits sets the stroke range used for validation and clamping.
func WithLimits(lim domain.Limits) EngineOption {
	return func(e *Engine) {
		e.limits = lim
	}
}

// WithTotalCycles sets the initial operator total.
func WithTotalCycles(n uint64) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.cycles.Total = n
		}
	}
}

// WithStopAtTotal makes the engine stop itself once the total is reached.
func WithStopAtTotal(enabled bool) EngineOption {
	return func(e *Engine) {
		e.stopAtTotal = enabled
	}
}

// WithClock overrides the wall clock used for log timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithHost attaches the save/load capability of the embedding application.
func WithHost(h ports.Host) EngineOption {
	return func(e *Engine) {
		e.host = h
	}
}

// WithNoise sets the random source shared by the motion law and the random pacer.
func WithNoise(n Noise) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.noise = n
		}
	}
}

// WithSeed makes every random draw reproducible.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.noise = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithBufferSizes overrides the history window and event log bounds.
func WithBufferSizes(history, log int) EngineOption {
	return func(e *Engine) {
		e.historySize = history
		e.logSize = log
	}
}

type pacingConfig struct {
	mode        PacingMode
	probability float64
	tolerance   float64
	timeout     time.Duration
}

func (c pacingConfig) build(noise Noise) Pacer {
	if c.mode == PacingRandom {
		p := c.probability
		if p <= 0 || p > 1 {
			p = DefaultAdvanceProbability
		}
		return &RandomPacer{Probability: p, Noise: noise}
	}
	tol := c.tolerance
	if tol <= 0 {
		tol = DefaultArrivalTolerance
	}
	timeout := c.timeout
	if timeout == 0 {
		timeout = DefaultMoveTimeout
	}
	return &ArrivalPacer{Tolerance: tol, MoveTimeout: timeout}
}
