package kouzou

import (
	"sync"

	"github.com/edwinsyarief/kouzou/container"
	"go.uber.org/zap"
)

const (
	defaultInitialCapacity = 1024
	defaultPoolIncrement   = 256
)

// World owns an entity table, the archetypes its entities live in, and the
// shared-component pools they reference. Every structural mutation (entity
// create/destroy, component add/remove, archetype migration) runs under one
// world-wide lock. Bulk iteration over archetype columns is lock-free and is
// only safe while no structural change runs concurrently; queue structural
// changes in Commands() and flush them between ticks.
type World struct {
	mu        sync.RWMutex
	registry  *Registry
	entities  *container.IndexPool[entityRecord]
	root      *ArchetypeRoot
	shared    map[ComponentType]sharedStore
	commands  *CommandBuffer
	resources *Resources
	events    *EventBus
	log       *zap.Logger
	pending   []worldEvent
	name      string
}

type worldOptions struct {
	registry        *Registry
	log             *zap.Logger
	name            string
	initialCapacity int
	poolIncrement   int
}

// WorldOption configures NewWorld.
type WorldOption func(*worldOptions)

// WithName names the world. Names matter to Worlds, which rejects duplicates.
func WithName(name string) WorldOption {
	return func(o *worldOptions) { o.name = name }
}

// WithLogger sets the logger used for archetype and registration events.
func WithLogger(log *zap.Logger) WorldOption {
	return func(o *worldOptions) { o.log = log }
}

// WithRegistry shares a component registry between worlds.
func WithRegistry(r *Registry) WorldOption {
	return func(o *worldOptions) { o.registry = r }
}

// WithInitialCapacity pre-allocates room for n entities and n rows per new
// archetype column.
func WithInitialCapacity(n int) WorldOption {
	return func(o *worldOptions) { o.initialCapacity = n }
}

// WithPoolIncrement sets the minimum growth step of the entity table.
func WithPoolIncrement(n int) WorldOption {
	return func(o *worldOptions) { o.poolIncrement = n }
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOption) *World {
	o := worldOptions{
		initialCapacity: defaultInitialCapacity,
		poolIncrement:   defaultPoolIncrement,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.registry == nil {
		o.registry = NewRegistry()
		o.registry.SetLogger(o.log)
	}
	w := &World{
		name:      o.name,
		registry:  o.registry,
		entities:  container.NewIndexPool[entityRecord](o.initialCapacity, o.poolIncrement),
		shared:    make(map[ComponentType]sharedStore),
		commands:  &CommandBuffer{},
		resources: &Resources{},
		events:    &EventBus{},
		log:       o.log.With(zap.String("world", o.name)),
	}
	// columns start small; the entity table carries the bulk pre-allocation
	w.root = newArchetypeRoot(w.registry, w.storeLocked, min(o.initialCapacity, 64))
	w.root.onCreate = func(a *Archetype) {
		w.log.Debug("archetype created",
			zap.Uint32("id", uint32(a.id)),
			zap.Int("normal", a.normal.Len()),
			zap.Int("shared", a.shared.Len()))
		w.pending = append(w.pending, worldEvent{kind: eventArchetypeCreated, arch: a})
	}
	return w
}

// Name returns the world's name.
func (w *World) Name() string { return w.name }

// Registry returns the component registry.
func (w *World) Registry() *Registry { return w.registry }

// Events returns the bus the world publishes structural events on.
func (w *World) Events() *EventBus { return w.events }

// Resources returns the world's typed singleton store.
func (w *World) Resources() *Resources { return w.resources }

// Commands returns the world's deferred structural-change buffer.
func (w *World) Commands() *CommandBuffer { return w.commands }

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger { return w.log }

// unlock releases the write lock and publishes the events raised while it was
// held, so handlers may call back into the world.
func (w *World) unlock() {
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()
	for _, ev := range pending {
		ev.publish(w.events)
	}
}

// storeLocked returns the pool for shared type ct, creating it on first use.
func (w *World) storeLocked(ct ComponentType) sharedStore {
	if s, ok := w.shared[ct]; ok {
		return s
	}
	s := w.registry.newStore(ct)
	w.shared[ct] = s
	return s
}

// recordLocked returns the table slot for e if e is alive.
func (w *World) recordLocked(e Entity) *entityRecord {
	if e.IsNull() || int(e.ID) >= w.entities.Len() {
		return nil
	}
	rec := w.entities.Get(int(e.ID))
	if !rec.alive || rec.version != e.Version {
		return nil
	}
	return rec
}

// newEntityLocked claims a table slot. Reused slots get the next generation.
// Pointers into the table are invalidated.
func (w *World) newEntityLocked() Entity {
	id := w.entities.Claim()
	rec := w.entities.Get(id)
	rec.version++
	if rec.version == 0 {
		rec.version = 1
	}
	rec.alive = true
	rec.arch = nil
	e := Entity{ID: uint32(id), Version: rec.version}
	w.pending = append(w.pending, worldEvent{kind: eventEntityCreated, entity: e})
	return e
}

// IsAlive reports whether e refers to a live entity of this world.
func (w *World) IsAlive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.recordLocked(e) != nil
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.Live()
}

// CreateEntity creates an entity with no components.
func (w *World) CreateEntity() Entity {
	w.mu.Lock()
	defer w.unlock()
	return w.newEntityLocked()
}

// AddEntity creates an entity holding the given components and everything
// they require, zero-initialized.
func (w *World) AddEntity(types ...ComponentType) Entity {
	w.mu.Lock()
	defer w.unlock()
	e := w.newEntityLocked()
	if len(types) == 0 {
		return e
	}
	a := w.root.GetOrCreateFor(types...)
	a.AddEntity(e.ID)
	w.entities.Get(int(e.ID)).arch = a
	return e
}

// AddEntities creates count entities in archetype a (nil for none) and calls
// onCreate for each after the world lock is released.
func (w *World) AddEntities(count int, a *Archetype, onCreate func(Entity)) []Entity {
	if count <= 0 {
		return nil
	}
	w.mu.Lock()
	ents := w.spawnLocked(a, count)
	w.unlock()
	if onCreate != nil {
		for _, e := range ents {
			onCreate(e)
		}
	}
	return ents
}

func (w *World) spawnLocked(a *Archetype, count int) []Entity {
	w.entities.Reserve(count)
	ents := make([]Entity, count)
	for i := range ents {
		e := w.newEntityLocked()
		if a != nil {
			a.AddEntity(e.ID)
			w.entities.Get(int(e.ID)).arch = a
		}
		ents[i] = e
	}
	return ents
}

// DestroyEntity disposes e's components and frees its slot. It returns false
// for dead or stale handles.
func (w *World) DestroyEntity(e Entity) bool {
	w.mu.Lock()
	defer w.unlock()
	return w.destroyLocked(e)
}

func (w *World) destroyLocked(e Entity) bool {
	rec := w.recordLocked(e)
	if rec == nil {
		return false
	}
	if rec.arch != nil {
		rec.arch.RemoveEntity(e.ID, true)
	}
	rec.arch = nil
	rec.alive = false
	w.entities.RemoveAt(int(e.ID), 1)
	w.pending = append(w.pending, worldEvent{kind: eventEntityDestroyed, entity: e})
	return true
}

// DestroyEntities destroys every handle in ents and returns how many were
// alive.
func (w *World) DestroyEntities(ents []Entity) int {
	w.mu.Lock()
	defer w.unlock()
	n := 0
	for _, e := range ents {
		if w.destroyLocked(e) {
			n++
		}
	}
	return n
}

// Clone creates a new entity with a copy of every component of e. Components
// implementing Cloner get OnClone on their copy; shared components gain a
// reference.
func (w *World) Clone(e Entity) Entity {
	w.mu.Lock()
	defer w.unlock()
	rec := w.recordLocked(e)
	if rec == nil {
		return NullEntity
	}
	a := rec.arch
	ne := w.newEntityLocked()
	if a != nil {
		w.root.clone(e.ID, ne.ID, a)
		w.entities.Get(int(ne.ID)).arch = a
	}
	return ne
}

// TryAddComponent adds a zero value of ct (and its requirements) to e. It
// returns false if e is dead or already has ct.
func (w *World) TryAddComponent(e Entity, ct ComponentType) bool {
	w.mu.Lock()
	defer w.unlock()
	_, _, added := w.addLocked(e, ct)
	return added
}

// AddComponent returns a pointer to e's ct value, adding it first if needed.
// Normal components yield *T; shared ones yield the *uint32 pool index.
func (w *World) AddComponent(e Entity, ct ComponentType) any {
	w.mu.Lock()
	defer w.unlock()
	a, row, _ := w.addLocked(e, ct)
	if a == nil {
		return nil
	}
	return a.column(ct).pointer(row)
}

// addLocked returns the entity's archetype and row after ensuring ct is
// present, and whether a migration happened.
func (w *World) addLocked(e Entity, ct ComponentType) (*Archetype, int, bool) {
	rec := w.recordLocked(e)
	if rec == nil {
		return nil, -1, false
	}
	to, row, changed := w.root.addComponent(e.ID, rec.arch, ct)
	// archetype creation never touches the entity table, rec is still valid
	rec.arch = to
	return to, row, changed
}

// RemoveComponent drops ct from e, migrating it to the matching archetype.
// It returns false if e is dead or lacks ct.
func (w *World) RemoveComponent(e Entity, ct ComponentType) bool {
	w.mu.Lock()
	defer w.unlock()
	rec := w.recordLocked(e)
	if rec == nil {
		return false
	}
	to, _, removed := w.root.removeComponent(e.ID, rec.arch, ct)
	if removed {
		rec.arch = to
	}
	return removed
}

// HasComponent reports whether e currently holds ct.
func (w *World) HasComponent(e Entity, ct ComponentType) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec := w.recordLocked(e)
	return rec != nil && rec.arch != nil && rec.arch.Has(ct)
}

// ComponentPointer returns e's ct value as any, or nil.
func (w *World) ComponentPointer(e Entity, ct ComponentType) any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec := w.recordLocked(e)
	if rec == nil || rec.arch == nil {
		return nil
	}
	return rec.arch.ComponentPointer(ct, rec.arch.Row(e.ID))
}

// ArchetypeOf returns the archetype e lives in, or nil.
func (w *World) ArchetypeOf(e Entity) *Archetype {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec := w.recordLocked(e)
	if rec == nil {
		return nil
	}
	return rec.arch
}

// GetArchetype returns the archetype holding the given components and their
// requirements, creating it if needed.
func (w *World) GetArchetype(types ...ComponentType) *Archetype {
	w.mu.Lock()
	defer w.unlock()
	return w.root.GetOrCreateFor(types...)
}

// FindArchetype returns the archetype whose signature is exactly types (in
// any order), or nil. Requirements are not expanded.
func (w *World) FindArchetype(types ...ComponentType) *Archetype {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root.FindArchetype(types...)
}

// Archetypes returns every archetype created so far.
func (w *World) Archetypes() []*Archetype {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*Archetype(nil), w.root.list...)
}

// archetypeVersion is read by queries to detect new archetypes.
func (w *World) archetypeVersion() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root.version
}

// entityAt resolves the live handle for a slot, used by iterators.
func (w *World) entityAt(id uint32) Entity {
	if int(id) >= w.entities.Len() {
		return NullEntity
	}
	rec := w.entities.Get(int(id))
	if !rec.alive {
		return NullEntity
	}
	return Entity{ID: id, Version: rec.version}
}

// ClearEntities destroys every entity, disposing their components. Archetypes
// are kept for reuse.
func (w *World) ClearEntities() {
	w.mu.Lock()
	defer w.unlock()
	for _, a := range w.root.list {
		a.clear(true)
	}
	for i := range w.entities.Len() {
		rec := w.entities.Get(i)
		rec.alive = false
		rec.arch = nil
	}
	w.entities.Clear()
}
