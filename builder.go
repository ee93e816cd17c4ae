package kouzou

// Builder creates entities in the archetype of T (plus T's requirements)
// without going through a migration per entity.
type Builder[T any] struct {
	world *World
	arch  *Archetype
	ct    ComponentType
}

// NewBuilder ...
func NewBuilder[T any](w *World) *Builder[T] {
	ct := TypeOf[T](w)
	return &Builder[T]{world: w, arch: w.GetArchetype(ct), ct: ct}
}

// Archetype returns the archetype the builder fills.
func (b *Builder[T]) Archetype() *Archetype { return b.arch }

// NewEntity ...
func (b *Builder[T]) NewEntity() Entity {
	return b.NewEntities(1)[0]
}

// NewEntities ...
func (b *Builder[T]) NewEntities(count int) []Entity {
	return b.world.AddEntities(count, b.arch, nil)
}

// NewEntitiesWithValueSet creates count entities with T set to comp.
func (b *Builder[T]) NewEntitiesWithValueSet(count int, comp T) []Entity {
	if count <= 0 {
		return nil
	}
	w := b.world
	w.mu.Lock()
	defer w.unlock()
	ents := w.spawnLocked(b.arch, count)
	if c := typedColumnOf[T](b.arch, b.ct); c != nil {
		for _, e := range ents {
			*c.get(b.arch.Row(e.ID)) = comp
		}
	}
	return ents
}

// Get ...
func (b *Builder[T]) Get(e Entity) *T {
	w := b.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	return compLocked[T](w, e, b.ct)
}

// Builder2 is Builder for two component types.
type Builder2[A, B any] struct {
	world *World
	arch  *Archetype
	ctA   ComponentType
	ctB   ComponentType
}

// NewBuilder2 ...
func NewBuilder2[A, B any](w *World) *Builder2[A, B] {
	ctA, ctB := TypeOf[A](w), TypeOf[B](w)
	return &Builder2[A, B]{world: w, arch: w.GetArchetype(ctA, ctB), ctA: ctA, ctB: ctB}
}

// Archetype returns the archetype the builder fills.
func (b *Builder2[A, B]) Archetype() *Archetype { return b.arch }

// NewEntity ...
func (b *Builder2[A, B]) NewEntity() Entity {
	return b.NewEntities(1)[0]
}

// NewEntities ...
func (b *Builder2[A, B]) NewEntities(count int) []Entity {
	return b.world.AddEntities(count, b.arch, nil)
}

// NewEntitiesWithValueSet ...
func (b *Builder2[A, B]) NewEntitiesWithValueSet(count int, compA A, compB B) []Entity {
	if count <= 0 {
		return nil
	}
	w := b.world
	w.mu.Lock()
	defer w.unlock()
	ents := w.spawnLocked(b.arch, count)
	ca, cb := typedColumnOf[A](b.arch, b.ctA), typedColumnOf[B](b.arch, b.ctB)
	for _, e := range ents {
		row := b.arch.Row(e.ID)
		if ca != nil {
			*ca.get(row) = compA
		}
		if cb != nil {
			*cb.get(row) = compB
		}
	}
	return ents
}

// Get ...
func (b *Builder2[A, B]) Get(e Entity) (*A, *B) {
	w := b.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	return compLocked[A](w, e, b.ctA), compLocked[B](w, e, b.ctB)
}

// Builder3 is Builder for three component types.
type Builder3[A, B, C any] struct {
	world *World
	arch  *Archetype
	ctA   ComponentType
	ctB   ComponentType
	ctC   ComponentType
}

// NewBuilder3 ...
func NewBuilder3[A, B, C any](w *World) *Builder3[A, B, C] {
	ctA, ctB, ctC := TypeOf[A](w), TypeOf[B](w), TypeOf[C](w)
	return &Builder3[A, B, C]{world: w, arch: w.GetArchetype(ctA, ctB, ctC), ctA: ctA, ctB: ctB, ctC: ctC}
}

// Archetype returns the archetype the builder fills.
func (b *Builder3[A, B, C]) Archetype() *Archetype { return b.arch }

// NewEntity ...
func (b *Builder3[A, B, C]) NewEntity() Entity {
	return b.NewEntities(1)[0]
}

// NewEntities ...
func (b *Builder3[A, B, C]) NewEntities(count int) []Entity {
	return b.world.AddEntities(count, b.arch, nil)
}

// NewEntitiesWithValueSet ...
func (b *Builder3[A, B, C]) NewEntitiesWithValueSet(count int, compA A, compB B, compC C) []Entity {
	if count <= 0 {
		return nil
	}
	w := b.world
	w.mu.Lock()
	defer w.unlock()
	ents := w.spawnLocked(b.arch, count)
	ca, cb, cc := typedColumnOf[A](b.arch, b.ctA), typedColumnOf[B](b.arch, b.ctB), typedColumnOf[C](b.arch, b.ctC)
	for _, e := range ents {
		row := b.arch.Row(e.ID)
		if ca != nil {
			*ca.get(row) = compA
		}
		if cb != nil {
			*cb.get(row) = compB
		}
		if cc != nil {
			*cc.get(row) = compC
		}
	}
	return ents
}

// Get ...
func (b *Builder3[A, B, C]) Get(e Entity) (*A, *B, *C) {
	w := b.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	return compLocked[A](w, e, b.ctA), compLocked[B](w, e, b.ctB), compLocked[C](w, e, b.ctC)
}
