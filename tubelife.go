package tubelife

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/tubelife/internal/runtime"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/ports"
	"github.com/aretw0/tubelife/pkg/runner"
)

// Re-exported engine extension points.
type (
	Pacer      = runtime.Pacer
	PacerFunc  = runtime.PacerFunc
	Progress   = runtime.Progress
	Decision   = runtime.Decision
	Law        = runtime.Law
	LawFunc    = runtime.LawFunc
	Noise      = runtime.Noise
	PacingMode = runtime.PacingMode
)

const (
	PacingArrival = runtime.PacingArrival
	PacingRandom  = runtime.PacingRandom

	Hold     = runtime.Hold
	Proceed  = runtime.Proceed
	TimedOut = runtime.TimedOut
)

// ErrNoHost is returned by Save and RequestLoad when no host is attached.
var ErrNoHost = runtime.ErrNoHost

// Engine is the high-level entry point of the library.
// It embeds the runtime engine, so every command and Snapshot is available
// directly.
type Engine struct {
	*runtime.Engine
	Name string

	logger *slog.Logger
}

type config struct {
	sequence    *domain.Sequence
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*config)

// WithSequence sets the initial sequence (default: the six-step A/B cycle).
func WithSequence(seq domain.Sequence) Option {
	return func(c *config) {
		c.sequence = &seq
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return runtimeOption(runtime.WithLifecycleHooks(hooks))
}

// WithHost attaches the save/load capability.
func WithHost(h ports.Host) Option {
	return runtimeOption(runtime.WithHost(h))
}

// WithPacer replaces the step advancement policy.
func WithPacer(p Pacer) Option {
	return runtimeOption(runtime.WithPacer(p))
}

// WithPacing selects a built-in pacer; zero values pick its defaults.
func WithPacing(mode PacingMode, probability, tolerance float64, moveTimeout time.Duration) Option {
	return runtimeOption(runtime.WithPacing(mode, probability, tolerance, moveTimeout))
}

// WithLaw sets the motion law of both axes.
func WithLaw(l Law) Option {
	return runtimeOption(runtime.WithLaw(l))
}

// WithConvergence sets the gain of the default simulated law.
func WithConvergence(k float64) Option {
	return runtimeOption(runtime.WithConvergence(k))
}

// WithTickPeriod sets the duration each tick accounts for, and the runner period.
func WithTickPeriod(d time.Duration) Option {
	return runtimeOption(runtime.WithTickPeriod(d))
}

// WithLimits sets the stroke range.
func WithLimits(lim domain.Limits) Option {
	return runtimeOption(runtime.WithLimits(lim))
}

// WithTotalCycles sets the initial cycle total.
func WithTotalCycles(n uint64) Option {
	return runtimeOption(runtime.WithTotalCycles(n))
}

// WithStopAtTotal stops the engine once the cycle total is reached.
func WithStopAtTotal(enabled bool) Option {
	return runtimeOption(runtime.WithStopAtTotal(enabled))
}

// WithSeed makes the simulated noise and random pacing reproducible.
func WithSeed(seed uint64) Option {
	return runtimeOption(runtime.WithSeed(seed))
}

// WithClock overrides the clock used for log timestamps.
func WithClock(now func() time.Time) Option {
	return runtimeOption(runtime.WithClock(now))
}

func runtimeOption(o runtime.EngineOption) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, o)
	}
}

// New initializes an IDLE engine.
func New(opts ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	seq := domain.DefaultSequence()
	if cfg.sequence != nil {
		seq = *cfg.sequence
	}
	if seq.Name == "" {
		seq.Name = domain.DefaultSequenceName
	}

	// Ensure logger is initialized so the runtime never logs to nil.
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	runtimeOpts := append([]runtime.EngineOption{runtime.WithLogger(cfg.logger)}, cfg.runtimeOpts...)
	rt, err := runtime.NewEngine(seq, runtimeOpts...)
	if err != nil {
		return nil, err
	}

	return &Engine{Engine: rt, Name: seq.Name, logger: cfg.logger}, nil
}

// Runner returns a real-time scheduler for this engine, ticking at the
// engine's tick period unless overridden.
func (e *Engine) Runner(opts ...runner.Option) *runner.Runner {
	base := []runner.Option{
		runner.WithPeriod(e.TickPeriod()),
		runner.WithLogger(e.logger),
	}
	return runner.New(e.Engine, append(base, opts...)...)
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
