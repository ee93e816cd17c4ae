package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the runtime configuration of the engine and the simulation.
type Config struct {
	Engine     EngineConfig     `toml:"engine" yaml:"engine"`
	Pipeline   PipelineConfig   `toml:"pipeline" yaml:"pipeline"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Simulation SimulationConfig `toml:"simulation" yaml:"simulation"`
}

// EngineConfig sizes the world.
type EngineConfig struct {
	Name            string `toml:"name" yaml:"name"`
	InitialCapacity int    `toml:"initial_capacity" yaml:"initial_capacity"`
	PoolIncrement   int    `toml:"pool_increment" yaml:"pool_increment"`
}

// PipelineConfig configures the fixed-tick scheduler.
type PipelineConfig struct {
	Horizon       int           `toml:"horizon" yaml:"horizon"`
	Workers       int           `toml:"workers" yaml:"workers"` // 0 = GOMAXPROCS
	TickRate      time.Duration `toml:"tick_rate" yaml:"tick_rate"`
	DefaultWeight int           `toml:"default_weight" yaml:"default_weight"`
	BalanceWindow int           `toml:"balance_window" yaml:"balance_window"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

// SimulationConfig drives the particle simulation.
type SimulationConfig struct {
	Entities int   `toml:"entities" yaml:"entities"`
	Ticks    int   `toml:"ticks" yaml:"ticks"` // 0 = run until interrupted
	Seed     int64 `toml:"seed" yaml:"seed"`
	Churn    int   `toml:"churn" yaml:"churn"` // entities respawned per tick
}

// Load reads path over the defaults. Files ending in .yaml or .yml are parsed
// as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Pipeline.Horizon <= 0:
		return fmt.Errorf("%w: pipeline.horizon must be positive, got %d", ErrInvalid, c.Pipeline.Horizon)
	case c.Pipeline.Workers < 0:
		return fmt.Errorf("%w: pipeline.workers must not be negative, got %d", ErrInvalid, c.Pipeline.Workers)
	case c.Pipeline.TickRate <= 0:
		return fmt.Errorf("%w: pipeline.tick_rate must be positive, got %s", ErrInvalid, c.Pipeline.TickRate)
	case c.Pipeline.BalanceWindow <= 0:
		return fmt.Errorf("%w: pipeline.balance_window must be positive, got %d", ErrInvalid, c.Pipeline.BalanceWindow)
	case c.Engine.InitialCapacity < 0 || c.Engine.PoolIncrement < 0:
		return fmt.Errorf("%w: engine capacities must not be negative", ErrInvalid)
	case c.Simulation.Entities < 0 || c.Simulation.Ticks < 0 || c.Simulation.Churn < 0:
		return fmt.Errorf("%w: simulation counts must not be negative", ErrInvalid)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:            "main",
			InitialCapacity: 1024,
			PoolIncrement:   256,
		},
		Pipeline: PipelineConfig{
			Horizon:       64,
			TickRate:      16 * time.Millisecond,
			DefaultWeight: 1,
			BalanceWindow: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Simulation: SimulationConfig{
			Entities: 10000,
			Ticks:    600,
			Seed:     1,
			Churn:    32,
		},
	}
}
