package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/internal/config"
	"github.com/aretw0/tubelife/internal/logging"
	"github.com/aretw0/tubelife/pkg/domain"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = backend
	switch backend {
	case config.BackendFile:
		cfg.Store.Path = filepath.Join(t.TempDir(), "sequences")
	case config.BackendSQLite:
		cfg.Store.Path = filepath.Join(t.TempDir(), "rig.db")
	case config.BackendRedis:
		mr := miniredis.RunT(t)
		cfg.Store.RedisAddr = mr.Addr()
	}
	return cfg
}

func TestOpenLibrary_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite, config.BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			lib, err := OpenLibrary(testConfig(t, backend), logging.NewNop())
			require.NoError(t, err)
			defer lib.Close()

			seq := domain.DefaultSequence()
			seq.Name = "endurance"
			require.NoError(t, lib.Manager.Save(ctx, seq))

			names, err := lib.Manager.List(ctx)
			require.NoError(t, err)
			assert.Contains(t, names, "endurance")

			loaded, err := lib.Manager.Load(ctx, "endurance")
			require.NoError(t, err)
			assert.Equal(t, seq.Steps, loaded.Steps)
		})
	}
}

func TestOpenLibrary_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "tape"
	_, err := OpenLibrary(cfg, logging.NewNop())
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestOpenLibrary_FileYAML(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	cfg.Store.Format = "yaml"

	lib, err := OpenLibrary(cfg, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, lib.Manager.Save(context.Background(), domain.DefaultSequence()))

	_, err = os.Stat(filepath.Join(cfg.Store.Path, domain.DefaultSequenceName+".yaml"))
	assert.NoError(t, err)
}

func TestEngineOptions(t *testing.T) {
	cfg := config.Default()
	cfg.TotalCycles = 3
	cfg.StopAtTotal = true
	cfg.Seed = 11

	engine, err := tubelife.New(EngineOptions(cfg)...)
	require.NoError(t, err)

	assert.Equal(t, cfg.TickPeriod, engine.TickPeriod())
	assert.Equal(t, uint64(3), engine.Snapshot().Cycles.Total)
}

func TestNewEngine_CreatesLibraryEntry(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendMemory)
	cfg.Sequence = "bench"

	lib, err := OpenLibrary(cfg, logging.NewNop())
	require.NoError(t, err)

	engine, err := NewEngine(ctx, cfg, lib, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "bench", engine.Name)
	assert.Len(t, engine.Snapshot().Sequence.Steps, len(domain.DefaultSequence().Steps))

	names, err := lib.Manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bench"}, names)
}

func TestNewEngine_HostRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendMemory)
	lib, err := OpenLibrary(cfg, logging.NewNop())
	require.NoError(t, err)

	engine, err := NewEngine(ctx, cfg, lib, logging.NewNop())
	require.NoError(t, err)

	require.NoError(t, engine.RemoveStep(ctx, engine.Snapshot().Sequence.Steps[0].StepID()))
	require.NoError(t, engine.Save(ctx, "short"))
	engine.WaitIO()

	saved, err := lib.Manager.Load(ctx, "short")
	require.NoError(t, err)
	assert.Len(t, saved.Steps, len(domain.DefaultSequence().Steps)-1)
}

func TestNewEngine_WithoutLibrary(t *testing.T) {
	engine, err := NewEngine(context.Background(), config.Default(), nil, logging.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, engine.Save(context.Background(), ""), tubelife.ErrNoHost)
}

func TestSequenceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.yaml")
	doc := `
name: short
data:
  - id: s1
    type: MOVE_A
    pos: 10
    speed: 40
    force: 20
  - id: s2
    type: DELAY
    time: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	seq, err := SequenceFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "short", seq.Name)
	require.Len(t, seq.Steps, 2)
	assert.Equal(t, domain.StepMoveA, seq.Steps[0].Type())

	_, err = SequenceFromFile(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.json")
	require.NoError(t, os.WriteFile(ok, []byte(`{"name":"ok","data":[{"id":"a","type":"MOVE_B","pos":12,"speed":50,"force":30}]}`), 0644))
	far := filepath.Join(dir, "far.json")
	require.NoError(t, os.WriteFile(far, []byte(`{"name":"far","data":[{"id":"a","type":"MOVE_B","pos":80,"speed":50,"force":30}]}`), 0644))

	seq, err := ValidateFile(ok, domain.DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, "ok", seq.Name)

	_, err = ValidateFile(far, domain.DefaultLimits)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
