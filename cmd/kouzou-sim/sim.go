package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/edwinsyarief/kouzou"
	"github.com/edwinsyarief/kouzou/config"
	"github.com/edwinsyarief/kouzou/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Lifetime struct {
	Ticks int
}

// Material is shared: particles of one colour point at a single pool entry.
type Material struct {
	Color uint32
}

var palette = [...]Material{{0xff4040ff}, {0x40ff40ff}, {0x4040ffff}, {0xffffffff}}

const (
	arenaSize   = 1000.0
	reportEvery = 60
	particle    = "particle"
)

type stats struct {
	spawned   atomic.Int64
	destroyed atomic.Int64
}

type simulation struct {
	cfg     *config.Config
	log     *zap.Logger
	worlds  *kouzou.Worlds
	world   *kouzou.World
	prefabs *kouzou.Prefabs
	pipe    *pipeline.Pipeline
	rng     *rand.Rand
	stats   *stats
	start   uint64
}

func newSimulation(cfg *config.Config, log *zap.Logger) (*simulation, error) {
	worlds := kouzou.NewWorlds(log)
	reg := worlds.Registry()
	if _, err := kouzou.RegisterComponent[Velocity](reg, kouzou.Require[Position]()); err != nil {
		return nil, fmt.Errorf("register velocity: %w", err)
	}
	if _, err := kouzou.RegisterShared[Material](reg); err != nil {
		return nil, fmt.Errorf("register material: %w", err)
	}

	w, err := worlds.Create(cfg.Engine.Name,
		kouzou.WithInitialCapacity(cfg.Engine.InitialCapacity),
		kouzou.WithPoolIncrement(cfg.Engine.PoolIncrement))
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithHorizon(cfg.Pipeline.Horizon),
		pipeline.WithDefaultWeight(cfg.Pipeline.DefaultWeight),
		pipeline.WithBalanceWindow(cfg.Pipeline.BalanceWindow),
	}
	if cfg.Pipeline.Workers > 0 {
		opts = append(opts, pipeline.WithWorkers(cfg.Pipeline.Workers))
	}

	s := &simulation{
		cfg:     cfg,
		log:     log,
		worlds:  worlds,
		world:   w,
		prefabs: kouzou.NewPrefabs(),
		pipe:    pipeline.New(opts...),
		rng:     rand.New(rand.NewPCG(uint64(cfg.Simulation.Seed), 0)),
		stats:   &stats{},
	}
	w.Resources().Add(s.stats)
	kouzou.Subscribe(w.Events(), func(kouzou.EntityCreated) { s.stats.spawned.Add(1) })
	kouzou.Subscribe(w.Events(), func(kouzou.EntityDestroyed) { s.stats.destroyed.Add(1) })

	err = s.prefabs.Register(kouzou.Prefab{
		Name: particle,
		Types: []kouzou.ComponentType{
			kouzou.TypeOf[Velocity](w),
			kouzou.TypeOf[Lifetime](w),
			kouzou.TypeOf[Material](w),
		},
		Init: s.initParticle,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.prefabs.Spawn(w, particle, cfg.Simulation.Entities); err != nil {
		return nil, err
	}
	s.start = s.pipe.Current()
	s.schedule()
	return s, nil
}

// initParticle runs outside any tick, so it may use the shared rng.
func (s *simulation) initParticle(w *kouzou.World, e kouzou.Entity) {
	angle := s.rng.Float64() * 2 * math.Pi
	speed := 1 + s.rng.Float64()*4
	kouzou.Set(w, e, Position{X: s.rng.Float64() * arenaSize, Y: s.rng.Float64() * arenaSize})
	kouzou.Set(w, e, Velocity{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed})
	kouzou.Set(w, e, Lifetime{Ticks: 30 + s.rng.IntN(120)})
	kouzou.SetShared(w, e, palette[s.rng.IntN(len(palette))])
}

// schedule enqueues the systems for the first tick. Every system re-enqueues
// itself, so the set keeps running until the pipeline closes.
func (s *simulation) schedule() {
	move := kouzou.NewFilter2[Position, Velocity](s.world)
	age := kouzou.NewFilter[Lifetime](s.world)
	cmds := s.world.Commands()

	var movement, aging, respawn, report pipeline.Action
	movement = func(uint64) {
		move.Reset()
		for move.Next() {
			p, v := move.Get()
			p.X += v.X
			p.Y += v.Y
			if p.X < 0 || p.X > arenaSize {
				v.X = -v.X
			}
			if p.Y < 0 || p.Y > arenaSize {
				v.Y = -v.Y
			}
		}
		s.pipe.EnqueueAfter("movement", movement, 1, pipeline.Weight(4), pipeline.WaitForComplete())
	}
	aging = func(uint64) {
		age.Reset()
		for age.Next() {
			l := age.Get()
			l.Ticks--
			if l.Ticks == 0 {
				cmds.Destroy(age.Entity())
			}
		}
		s.pipe.EnqueueAfter("aging", aging, 1, pipeline.Weight(2), pipeline.WaitForComplete())
	}
	respawn = func(uint64) {
		if n := min(s.cfg.Simulation.Entities-s.world.Len(), s.cfg.Simulation.Churn); n > 0 {
			cmds.Defer(func(w *kouzou.World) {
				if _, err := s.prefabs.Spawn(w, particle, n); err != nil {
					s.log.Error("respawn failed", zap.Error(err))
				}
			})
		}
		s.pipe.EnqueueAfter("respawn", respawn, 1, pipeline.MainThread())
	}
	report = func(tick uint64) {
		st := kouzou.MustGetResource[stats](s.world.Resources())
		s.log.Info("tick",
			zap.Uint64("tick", tick),
			zap.Int("entities", s.world.Len()),
			zap.Int("archetypes", len(s.world.Archetypes())),
			zap.Int64("spawned", st.spawned.Load()),
			zap.Int64("destroyed", st.destroyed.Load()),
			zap.Int("pending", s.pipe.Pending()))
		s.pipe.EnqueueBalanced("report", report, tick+reportEvery, 0, pipeline.MainThread())
	}

	s.pipe.EnqueueAfter("movement", movement, 1, pipeline.Weight(4), pipeline.WaitForComplete())
	s.pipe.EnqueueAfter("aging", aging, 1, pipeline.Weight(2), pipeline.WaitForComplete())
	s.pipe.EnqueueAfter("respawn", respawn, 1, pipeline.MainThread())
	s.pipe.EnqueueBalanced("report", report, s.start+reportEvery, 0, pipeline.MainThread())
}

// run steps the pipeline on one goroutine and applies the recorded commands
// between ticks on another, until ctx ends or the configured tick count is
// reached.
func (s *simulation) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.pipe.Run(ctx, s.cfg.Pipeline.TickRate)
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.Pipeline.TickRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			s.pipe.WaitForEmptyAndExecute(func() { s.world.FlushCommands() })
			if limit := s.cfg.Simulation.Ticks; limit > 0 && s.pipe.Current()-s.start >= uint64(limit) {
				cancel()
				return nil
			}
		}
	})
	runErr := g.Wait()

	closeErr := s.pipe.Close()
	s.world.FlushCommands()
	s.log.Info("simulation stopped",
		zap.Uint64("ticks", s.pipe.Current()-s.start),
		zap.Int("entities", s.world.Len()),
		zap.Int64("spawned", s.stats.spawned.Load()),
		zap.Int64("destroyed", s.stats.destroyed.Load()))
	return errors.Join(runErr, closeErr)
}
