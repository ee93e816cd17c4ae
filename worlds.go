package kouzou

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrWorldExists   = errors.New("kouzou: world already exists")
	ErrPrefabExists  = errors.New("kouzou: prefab already registered")
	ErrUnknownPrefab = errors.New("kouzou: unknown prefab")
)

// Worlds is a set of named worlds sharing one component registry, so a
// ComponentType means the same thing in each of them.
type Worlds struct {
	mu       sync.RWMutex
	registry *Registry
	log      *zap.Logger
	worlds   map[string]*World
}

// NewWorlds creates an empty set. A nil logger disables logging.
func NewWorlds(log *zap.Logger) *Worlds {
	if log == nil {
		log = zap.NewNop()
	}
	reg := NewRegistry()
	reg.SetLogger(log)
	return &Worlds{
		registry: reg,
		log:      log,
		worlds:   make(map[string]*World),
	}
}

// Registry returns the registry shared by every world of the set.
func (s *Worlds) Registry() *Registry { return s.registry }

// Create makes a new world called name. Creating a second world with the
// same name is a configuration bug and fails with ErrWorldExists.
func (s *Worlds) Create(name string, opts ...WorldOption) (*World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worlds[name]; ok {
		return nil, fmt.Errorf("%q: %w", name, ErrWorldExists)
	}
	opts = append([]WorldOption{WithLogger(s.log)}, opts...)
	opts = append(opts, WithName(name), WithRegistry(s.registry))
	w := NewWorld(opts...)
	s.worlds[name] = w
	s.log.Info("world created", zap.String("world", name))
	return w, nil
}

// Get returns the world called name.
func (s *Worlds) Get(name string) (*World, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.worlds[name]
	return w, ok
}

// Remove clears the world called name and forgets it.
func (s *Worlds) Remove(name string) bool {
	s.mu.Lock()
	w, ok := s.worlds[name]
	delete(s.worlds, name)
	s.mu.Unlock()
	if ok {
		w.ClearEntities()
	}
	return ok
}

// Names returns the world names in sorted order.
func (s *Worlds) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.worlds))
	for name := range s.worlds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Prefab is a named entity template.
type Prefab struct {
	Name  string
	Types []ComponentType
	// Init, if set, fills in component values on every spawned entity.
	Init func(w *World, e Entity)
}

// Prefabs is a registry of entity templates.
type Prefabs struct {
	mu      sync.RWMutex
	prefabs map[string]Prefab
}

// NewPrefabs creates an empty prefab registry.
func NewPrefabs() *Prefabs {
	return &Prefabs{prefabs: make(map[string]Prefab)}
}

// Register adds p. Names are unique; a duplicate fails with ErrPrefabExists.
func (p *Prefabs) Register(prefab Prefab) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.prefabs[prefab.Name]; ok {
		return fmt.Errorf("%q: %w", prefab.Name, ErrPrefabExists)
	}
	prefab.Types = append([]ComponentType(nil), prefab.Types...)
	p.prefabs[prefab.Name] = prefab
	return nil
}

// Get returns the prefab called name.
func (p *Prefabs) Get(name string) (Prefab, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prefab, ok := p.prefabs[name]
	return prefab, ok
}

// Spawn creates count entities from the prefab called name in w.
func (p *Prefabs) Spawn(w *World, name string, count int) ([]Entity, error) {
	prefab, ok := p.Get(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPrefab)
	}
	var a *Archetype
	if len(prefab.Types) > 0 {
		a = w.GetArchetype(prefab.Types...)
	}
	var init func(Entity)
	if prefab.Init != nil {
		init = func(e Entity) { prefab.Init(w, e) }
	}
	return w.AddEntities(count, a, init), nil
}
