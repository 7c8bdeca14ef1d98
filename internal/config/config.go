// Package config loads the tubelife runtime configuration from YAML, TOML or
// JSON files, with environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/tubelife/internal/logging"
	"github.com/aretw0/tubelife/internal/runtime"
	"github.com/aretw0/tubelife/pkg/domain"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TUBELIFE_"

// Config is the full runtime configuration.
type Config struct {
	TickPeriod         time.Duration `mapstructure:"tick_period" json:"tick_period"`
	Pacing             string        `mapstructure:"pacing" json:"pacing"`
	AdvanceProbability float64       `mapstructure:"advance_probability" json:"advance_probability"`
	ArrivalTolerance   float64       `mapstructure:"arrival_tolerance" json:"arrival_tolerance"`
	MoveTimeout        time.Duration `mapstructure:"move_timeout" json:"move_timeout"`
	Convergence        float64       `mapstructure:"convergence" json:"convergence"`
	StrokeMin          float64       `mapstructure:"stroke_min" json:"stroke_min"`
	StrokeMax          float64       `mapstructure:"stroke_max" json:"stroke_max"`
	TotalCycles        int64         `mapstructure:"total_cycles" json:"total_cycles"`
	StopAtTotal        bool          `mapstructure:"stop_at_total" json:"stop_at_total"`
	Seed               uint64        `mapstructure:"seed" json:"seed"` // 0 draws from the runtime source
	Sequence           string        `mapstructure:"sequence" json:"sequence"`
	LogLevel           string        `mapstructure:"log_level" json:"log_level"`

	Store StoreConfig `mapstructure:"store" json:"store"`
	HTTP  HTTPConfig  `mapstructure:"http" json:"http"`
}

// StoreConfig selects the sequence library backend.
type StoreConfig struct {
	Backend       string        `mapstructure:"backend" json:"backend"`
	Path          string        `mapstructure:"path" json:"path"`
	Format        string        `mapstructure:"format" json:"format"`
	RedisAddr     string        `mapstructure:"redis_addr" json:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" json:"-"`
	RedisDB       int           `mapstructure:"redis_db" json:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl" json:"ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" json:"lock_ttl"`
}

// HTTPConfig configures the control API.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr" json:"addr"`
	Metrics bool   `mapstructure:"metrics" json:"metrics"`
}

// Default returns the reference rig configuration.
func Default() *Config {
	return &Config{
		TickPeriod:         runtime.DefaultTickPeriod,
		Pacing:             string(runtime.PacingArrival),
		AdvanceProbability: runtime.DefaultAdvanceProbability,
		ArrivalTolerance:   runtime.DefaultArrivalTolerance,
		MoveTimeout:        runtime.DefaultMoveTimeout,
		Convergence:        runtime.DefaultConvergence,
		StrokeMin:          domain.DefaultLimits.StrokeMin,
		StrokeMax:          domain.DefaultLimits.StrokeMax,
		TotalCycles:        int64(domain.DefaultTotalCycles),
		Sequence:           domain.DefaultSequenceName,
		LogLevel:           "info",
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    ".tubelife/sequences",
			Format:  "json",
			LockTTL: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Metrics: true,
		},
	}
}

// Load reads path on top of the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse TOML config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %q", ext)
	}

	return c.Decode(raw)
}

// Decode merges a generic document into c. Unknown keys are rejected.
func (c *Config) Decode(raw map[string]any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies TUBELIFE_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "SEQUENCE"); v != "" {
		c.Sequence = v
	}
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &domain.ConfigError{Key: EnvPrefix + "SEED", Input: v}
		}
		c.Seed = n
	}

	// Store overrides
	if v := os.Getenv(EnvPrefix + "STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvPrefix + "REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv(EnvPrefix + "REDIS_PASSWORD"); v != "" {
		c.Store.RedisPassword = v
	}
	if v := os.Getenv(EnvPrefix + "REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ConfigError{Key: EnvPrefix + "REDIS_DB", Input: v}
		}
		c.Store.RedisDB = n
	}

	// HTTP overrides
	if v := os.Getenv(EnvPrefix + "HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(key string, value any) {
		errs = append(errs, &domain.ConfigError{Key: key, Input: fmt.Sprint(value)})
	}

	if c.TickPeriod <= 0 {
		invalid("tick_period", c.TickPeriod)
	}
	mode, err := runtime.ParsePacingMode(c.Pacing)
	if err != nil {
		invalid("pacing", c.Pacing)
	}
	if mode == runtime.PacingRandom && (c.AdvanceProbability <= 0 || c.AdvanceProbability > 1) {
		invalid("advance_probability", c.AdvanceProbability)
	}
	if c.ArrivalTolerance <= 0 {
		invalid("arrival_tolerance", c.ArrivalTolerance)
	}
	if c.MoveTimeout < 0 {
		invalid("move_timeout", c.MoveTimeout)
	}
	if c.Convergence <= 0 || c.Convergence > 1 {
		invalid("convergence", c.Convergence)
	}
	if c.StrokeMax <= c.StrokeMin {
		invalid("stroke_max", c.StrokeMax)
	}
	if c.TotalCycles <= 0 {
		invalid("total_cycles", c.TotalCycles)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid("log_level", c.LogLevel)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			invalid("store.path", c.Store.Path)
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			invalid("store.redis_addr", c.Store.RedisAddr)
		}
	default:
		invalid("store.backend", c.Store.Backend)
	}
	if c.Store.Format != "" && c.Store.Format != "json" && c.Store.Format != "yaml" {
		invalid("store.format", c.Store.Format)
	}

	return errors.Join(errs...)
}

// Limits returns the configured stroke range.
func (c *Config) Limits() domain.Limits {
	return domain.Limits{StrokeMin: c.StrokeMin, StrokeMax: c.StrokeMax}
}

// PacingMode returns the parsed pacing mode, defaulting to arrival.
func (c *Config) PacingMode() runtime.PacingMode {
	mode, err := runtime.ParsePacingMode(c.Pacing)
	if err != nil {
		return runtime.PacingArrival
	}
	return mode
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() slog.Level {
	lvl, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}
