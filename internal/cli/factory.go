package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/internal/config"
	"github.com/aretw0/tubelife/pkg/adapters/file"
	"github.com/aretw0/tubelife/pkg/adapters/memory"
	"github.com/aretw0/tubelife/pkg/adapters/redis"
	"github.com/aretw0/tubelife/pkg/adapters/sqlite"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/library"
	"github.com/aretw0/tubelife/pkg/ports"
)

// Library is the configured sequence library and the resources behind it.
type Library struct {
	Manager *library.Manager
	Host    *library.Host

	closers []io.Closer
}

// Close releases backend connections.
func (l *Library) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// OpenLibrary opens the store backend named in cfg.
func OpenLibrary(cfg *config.Config, logger *slog.Logger) (*Library, error) {
	lib := &Library{}
	mopts := []library.Option{library.WithLogger(logger)}
	if cfg.Store.LockTTL > 0 {
		mopts = append(mopts, library.WithLockTTL(cfg.Store.LockTTL))
	}

	var store ports.SequenceStore
	switch cfg.Store.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		fs := file.New(cfg.Store.Path)
		if cfg.Store.Format == string(file.FormatYAML) {
			fs.Format = file.FormatYAML
		}
		store = fs
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		lib.closers = append(lib.closers, s)
		store = s
	case config.BackendRedis:
		var ropts []redis.Option
		if cfg.Store.TTL > 0 {
			ropts = append(ropts, redis.WithTTL(cfg.Store.TTL))
		}
		rs := redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, ropts...)
		lib.closers = append(lib.closers, rs)
		mopts = append(mopts, library.WithLocker(redis.NewLocker(rs.Client(), rs.Prefix())))
		store = rs
	default:
		return nil, &domain.ConfigError{Key: "store.backend", Input: cfg.Store.Backend}
	}

	logger.Debug("library opened", "backend", cfg.Store.Backend, "path", cfg.Store.Path)
	lib.Manager = library.NewManager(store, mopts...)
	lib.Host = library.NewHost(lib.Manager, cfg.Sequence)
	return lib, nil
}

// EngineOptions translates the rig configuration into engine options.
func EngineOptions(cfg *config.Config) []tubelife.Option {
	opts := []tubelife.Option{
		tubelife.WithTickPeriod(cfg.TickPeriod),
		tubelife.WithPacing(cfg.PacingMode(), cfg.AdvanceProbability, cfg.ArrivalTolerance, cfg.MoveTimeout),
		tubelife.WithConvergence(cfg.Convergence),
		tubelife.WithLimits(cfg.Limits()),
		tubelife.WithStopAtTotal(cfg.StopAtTotal),
	}
	if cfg.TotalCycles > 0 {
		opts = append(opts, tubelife.WithTotalCycles(uint64(cfg.TotalCycles)))
	}
	if cfg.Seed != 0 {
		opts = append(opts, tubelife.WithSeed(cfg.Seed))
	}
	return opts
}

// NewEngine builds an engine attached to lib. The initial sequence is the
// configured library entry, created from the default cycle when missing,
// unless extra options override it.
func NewEngine(ctx context.Context, cfg *config.Config, lib *Library, logger *slog.Logger, extra ...tubelife.Option) (*tubelife.Engine, error) {
	opts := append(EngineOptions(cfg), tubelife.WithLogger(logger))

	if lib != nil {
		seq, err := lib.Manager.LoadOrCreate(ctx, cfg.Sequence, domain.DefaultSequence())
		if err != nil {
			return nil, fmt.Errorf("error loading sequence %q: %w", cfg.Sequence, err)
		}
		opts = append(opts, tubelife.WithSequence(seq), tubelife.WithHost(lib.Host))
	}

	engine, err := tubelife.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// SequenceFromFile reads a JSON or YAML sequence document.
func SequenceFromFile(path string) (domain.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Sequence{}, err
	}
	return file.ReadDocument(path, data)
}

// ValidateFile reads a sequence document and checks every step against the
// configured stroke limits.
func ValidateFile(path string, lim domain.Limits) (domain.Sequence, error) {
	seq, err := SequenceFromFile(path)
	if err != nil {
		return domain.Sequence{}, err
	}
	if err := domain.ValidateSteps(seq.Steps, lim); err != nil {
		return domain.Sequence{}, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}
