// kouzou-sim drives a particle simulation on a world and a pipeline, for
// smoke testing and profiling the engine.
//
//	go run ./cmd/kouzou-sim -config cmd/kouzou-sim/kouzou.toml
//	go run ./cmd/kouzou-sim -profile cpu
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edwinsyarief/kouzou/config"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgFlag := flag.String("config", "", "TOML or YAML config file (default $KOUZOU_CONFIG)")
	profFlag := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	// 1. Load config
	cfgPath := *cfgFlag
	if cfgPath == "" {
		cfgPath = os.Getenv("KOUZOU_CONFIG")
	}
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Profiling
	switch *profFlag {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profFlag)
	}

	// 4. Build and run the simulation until done or interrupted
	sim, err := newSimulation(cfg, log)
	if err != nil {
		return fmt.Errorf("init simulation: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("simulation started",
		zap.String("world", cfg.Engine.Name),
		zap.Int("entities", cfg.Simulation.Entities),
		zap.Int("ticks", cfg.Simulation.Ticks),
		zap.Duration("tick_rate", cfg.Pipeline.TickRate))
	return sim.run(ctx)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
