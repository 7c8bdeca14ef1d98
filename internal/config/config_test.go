package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tubelife/internal/runtime"
	"github.com/aretw0/tubelife/pkg/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50*time.Millisecond, cfg.TickPeriod)
	assert.Equal(t, runtime.PacingArrival, cfg.PacingMode())
	assert.Equal(t, domain.DefaultLimits, cfg.Limits())
	assert.Equal(t, int64(1000), cfg.TotalCycles)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Store, cfg.Store)
}

func TestLoad_Formats(t *testing.T) {
	cases := map[string]string{
		"rig.yaml": `
tick_period: 20ms
pacing: random
advance_probability: 0.1
total_cycles: 50
stop_at_total: true
seed: 7
store:
  backend: sqlite
  path: /tmp/rig.db
`,
		"rig.toml": `
tick_period = "20ms"
pacing = "random"
advance_probability = 0.1
total_cycles = 50
stop_at_total = true
seed = 7

[store]
backend = "sqlite"
path = "/tmp/rig.db"
`,
		"rig.json": `{
  "tick_period": "20ms",
  "pacing": "random",
  "advance_probability": 0.1,
  "total_cycles": 50,
  "stop_at_total": true,
  "seed": 7,
  "store": {"backend": "sqlite", "path": "/tmp/rig.db"}
}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, name, content))
			require.NoError(t, err)

			assert.Equal(t, 20*time.Millisecond, cfg.TickPeriod)
			assert.Equal(t, runtime.PacingRandom, cfg.PacingMode())
			assert.InDelta(t, 0.1, cfg.AdvanceProbability, 1e-9)
			assert.Equal(t, int64(50), cfg.TotalCycles)
			assert.True(t, cfg.StopAtTotal)
			assert.Equal(t, uint64(7), cfg.Seed)
			assert.Equal(t, BackendSQLite, cfg.Store.Backend)
			assert.Equal(t, "/tmp/rig.db", cfg.Store.Path)

			// Untouched keys keep their defaults.
			assert.Equal(t, runtime.DefaultMoveTimeout, cfg.MoveTimeout)
			assert.Equal(t, ":8080", cfg.HTTP.Addr)
		})
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeFile(t, "rig.yaml", "tick_rate: 20ms\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rate")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "rig.ini", "x=1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate_CollectsEveryField(t *testing.T) {
	cfg := Default()
	cfg.TickPeriod = 0
	cfg.Pacing = "sometimes"
	cfg.StrokeMax = cfg.StrokeMin
	cfg.TotalCycles = 0
	cfg.Store.Backend = "tape"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)

	for _, key := range []string{"tick_period", "pacing", "stroke_max", "total_cycles", "store.backend"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestValidate_Backends(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = BackendRedis
	assert.Error(t, cfg.Validate(), "redis needs an address")

	cfg.Store.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Backend = BackendMemory
	cfg.Store.Path = ""
	assert.NoError(t, cfg.Validate())

	cfg.Store.Backend = BackendFile
	assert.Error(t, cfg.Validate(), "file needs a path")
}

func TestValidate_RandomProbability(t *testing.T) {
	cfg := Default()
	cfg.AdvanceProbability = 0
	assert.NoError(t, cfg.Validate(), "ignored under arrival pacing")

	cfg.Pacing = string(runtime.PacingRandom)
	assert.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TUBELIFE_STORE_BACKEND", "redis")
	t.Setenv("TUBELIFE_REDIS_ADDR", "cache:6379")
	t.Setenv("TUBELIFE_REDIS_DB", "3")
	t.Setenv("TUBELIFE_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("TUBELIFE_LOG_LEVEL", "debug")
	t.Setenv("TUBELIFE_SEED", "42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestApplyEnvOverrides_BadNumber(t *testing.T) {
	t.Setenv("TUBELIFE_REDIS_DB", "zero")

	err := Default().ApplyEnvOverrides()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
}
