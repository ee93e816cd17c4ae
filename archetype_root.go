package kouzou

// ArchetypeRoot is the per-world registry of archetypes. Signatures are
// deduplicated by mask; archetypes are created on demand and never deleted,
// only emptied.
type ArchetypeRoot struct {
	registry *Registry
	byMask   map[bitmask256]*Archetype
	list     []*Archetype
	storeFor func(ComponentType) sharedStore
	onCreate func(*Archetype)
	capacity int
	version  uint32 // incremented when an archetype is created
}

func newArchetypeRoot(reg *Registry, storeFor func(ComponentType) sharedStore, capacity int) *ArchetypeRoot {
	return &ArchetypeRoot{
		registry: reg,
		byMask:   make(map[bitmask256]*Archetype),
		list:     make([]*Archetype, 0, 16),
		storeFor: storeFor,
		capacity: capacity,
	}
}

// Version changes every time a new archetype is created.
func (r *ArchetypeRoot) Version() uint32 { return r.version }

// Len returns the number of archetypes.
func (r *ArchetypeRoot) Len() int { return len(r.list) }

// Archetypes returns every archetype in creation order.
func (r *ArchetypeRoot) Archetypes() []*Archetype {
	return r.list
}

// Find returns the archetype for sig, or nil.
func (r *ArchetypeRoot) Find(sig Signature) *Archetype {
	return r.byMask[sig.mask]
}

// FindArchetype builds a signature from types in any order and returns the
// matching archetype, or nil.
func (r *ArchetypeRoot) FindArchetype(types ...ComponentType) *Archetype {
	return r.Find(NewSignature(types...))
}

// GetOrCreate returns the archetype for the given normal and shared sets,
// creating it if needed. The empty signature has no archetype.
func (r *ArchetypeRoot) GetOrCreate(normal, shared Signature) *Archetype {
	m := normal.mask.or(shared.mask)
	if m.isEmpty() {
		return nil
	}
	if a, ok := r.byMask[m]; ok {
		return a
	}
	a := newArchetype(ArchetypeID(len(r.list)), normal, shared, r.registry, r.storeFor, r.capacity)
	r.list = append(r.list, a)
	r.byMask[m] = a
	r.version++
	if r.onCreate != nil {
		r.onCreate(a)
	}
	return a
}

// GetOrCreateFor expands types through their requirement closures and
// returns the archetype holding all of them.
func (r *ArchetypeRoot) GetOrCreateFor(types ...ComponentType) *Archetype {
	var normal, shared Signature
	for _, ct := range types {
		n, s := r.registry.Closure(ct)
		normal = normal.Merge(n)
		shared = shared.Merge(s)
	}
	return r.GetOrCreate(normal, shared)
}

// TryGetArchetype returns the archetype for ct and its required closure.
func (r *ArchetypeRoot) TryGetArchetype(ct ComponentType) *Archetype {
	return r.GetOrCreateFor(ct)
}

// addComponent moves id from its current archetype (nil when it has none)
// into one that also holds ct and its requirements. It returns the target
// archetype, the entity's row there, and whether anything changed.
func (r *ArchetypeRoot) addComponent(id uint32, from *Archetype, ct ComponentType) (*Archetype, int, bool) {
	if from == nil {
		to := r.TryGetArchetype(ct)
		row, _ := to.AddEntity(id)
		return to, row, true
	}
	if from.Has(ct) {
		return from, from.Row(id), false
	}
	n, s := r.registry.Closure(ct)
	to := r.GetOrCreate(from.normal.Merge(n), from.shared.Merge(s))
	return to, r.migrate(id, from, to), true
}

// removeComponent moves id into the archetype without ct. A nil target means
// the entity is left without components.
func (r *ArchetypeRoot) removeComponent(id uint32, from *Archetype, ct ComponentType) (*Archetype, int, bool) {
	if from == nil || !from.Has(ct) {
		return from, -1, false
	}
	if from.sig.Len() == 1 {
		from.RemoveEntity(id, true)
		return nil, -1, true
	}
	normal, shared := from.normal, from.shared
	if shared.Contains(ct) {
		shared = shared.Remove(ct)
	} else {
		normal = normal.Remove(ct)
	}
	to := r.GetOrCreate(normal, shared)
	return to, r.migrate(id, from, to), true
}

// migrate adds id to to, copies every column both archetypes hold, disposes
// the columns to lacks, and finally removes id from from without disposing
// the values that were carried over.
func (r *ArchetypeRoot) migrate(id uint32, from, to *Archetype) int {
	dst, _ := to.AddEntity(id)
	src := from.Row(id)
	for _, c := range from.columns {
		if tc := to.column(c.componentType()); tc != nil {
			c.moveRow(tc, src, dst)
		} else {
			c.disposeRow(src)
		}
	}
	from.RemoveEntity(id, false)
	return dst
}

// clone gives dstID a copy of srcID's row in a, running clone hooks.
func (r *ArchetypeRoot) clone(srcID, dstID uint32, a *Archetype) int {
	dst, ok := a.AddEntity(dstID)
	if !ok {
		return -1
	}
	src := a.Row(srcID)
	for _, c := range a.columns {
		c.cloneRow(c, src, dst)
	}
	return dst
}
