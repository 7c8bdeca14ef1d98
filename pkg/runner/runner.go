package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tubelife/pkg/domain"
)

// DefaultPeriod matches the engine's default tick accounting.
const DefaultPeriod = 50 * time.Millisecond

// Engine is the part of the engine the runner needs.
type Engine interface {
	Tick(ctx context.Context) bool
	State() domain.RunState
	Changes() <-chan struct{}
}

// Runner schedules engine ticks.
type Runner struct {
	engine Engine
	period time.Duration
	logger *slog.Logger
	onTick func()

	ticks  atomic.Uint64
	panics atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithPeriod sets the wall-clock tick period.
func WithPeriod(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.period = d
		}
	}
}

// WithLogger sets the logger used for scheduler events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOnTick registers a callback run after every applied tick, outside the
// engine lock. Dashboards use it to redraw.
func WithOnTick(fn func()) Option {
	return func(r *Runner) {
		r.onTick = fn
	}
}

// New creates a Runner for engine.
func New(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		period: DefaultPeriod,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ticks returns how many ticks the engine applied under this runner.
func (r *Runner) Ticks() uint64 { return r.ticks.Load() }

// Panics returns how many ticks panicked and were recovered.
func (r *Runner) Panics() uint64 { return r.panics.Load() }

// Run blocks until ctx is done, ticking whenever the engine is RUNNING.
// It returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	for {
		if r.engine.State() != domain.StateRunning {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.engine.Changes():
				continue
			}
		}
		if err := r.armed(ctx); err != nil {
			return err
		}
	}
}

// armed ticks until the engine leaves RUNNING or ctx ends.
func (r *Runner) armed(ctx context.Context) error {
	r.logger.Debug("scheduler armed", "period", r.period)
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.engine.Changes():
			if r.engine.State() != domain.StateRunning {
				r.logger.Debug("scheduler disarmed")
				return nil
			}
		case <-ticker.C:
			applied, err := r.tick(ctx)
			if err != nil {
				r.panics.Add(1)
				r.logger.Error("tick panicked", "error", err)
				continue
			}
			if !applied {
				r.logger.Debug("scheduler disarmed")
				return nil
			}
			r.ticks.Add(1)
			if r.onTick != nil {
				r.onTick()
			}
		}
	}
}

func (r *Runner) tick(ctx context.Context) (applied bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.engine.Tick(ctx), nil
}

// Start runs the scheduler in the background until Stop or ctx ends.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("runner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = r.Run(ctx)
	}(r.stopped)
	return nil
}

// Stop halts a runner launched with Start and waits for its loop to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, stopped := r.cancel, r.stopped
	r.cancel, r.stopped = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
