package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tubelife/internal/logging"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a name.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to a sequence store.
// Locks are reference counted and dropped when unused.
type Manager struct {
	store ports.SequenceStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given store.
func NewManager(store ports.SequenceStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// Load retrieves a sequence.
func (m *Manager) Load(ctx context.Context, name string) (domain.Sequence, error) {
	var seq domain.Sequence
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		seq, err = m.store.Load(ctx, name)
		return err
	})
	return seq, err
}

// LoadOrCreate loads a sequence, storing and returning fallback under that
// name if it does not exist yet.
func (m *Manager) LoadOrCreate(ctx context.Context, name string, fallback domain.Sequence) (domain.Sequence, error) {
	var seq domain.Sequence
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		seq, err = m.store.Load(ctx, name)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSequenceNotFound) {
			return fmt.Errorf("failed to check sequence existence: %w", err)
		}

		seq = fallback.Clone()
		seq.Name = name
		if err := m.store.Save(ctx, seq); err != nil {
			return fmt.Errorf("failed to create sequence: %w", err)
		}
		m.logger.Info("sequence created", "name", name, "steps", len(seq.Steps))
		return nil
	})
	return seq, err
}

// Save persists a sequence under its own name.
func (m *Manager) Save(ctx context.Context, seq domain.Sequence) error {
	return m.WithLock(ctx, seq.Name, func(ctx context.Context) error {
		return m.store.Save(ctx, seq)
	})
}

// Update runs a read-modify-write cycle on one sequence while holding its lock.
func (m *Manager) Update(ctx context.Context, name string, fn func(domain.Sequence) (domain.Sequence, error)) (domain.Sequence, error) {
	var out domain.Sequence
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		seq, err := m.store.Load(ctx, name)
		if err != nil {
			return err
		}
		seq, err = fn(seq)
		if err != nil {
			return err
		}
		seq.Name = name
		if err := m.store.Save(ctx, seq); err != nil {
			return err
		}
		out = seq
		return nil
	})
	return out, err
}

// Delete removes a sequence.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying store.
func (m *Manager) Store() ports.SequenceStore {
	return m.store
}

// WithLock executes fn while holding the lock for the named sequence.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"sequence", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
