package kouzou

// TypeOf returns the component type id of T in w's registry, registering T
// as a normal component on first use.
func TypeOf[T any](w *World) ComponentType {
	return ComponentTypeOf[T](w.registry)
}

// Comp returns a pointer to e's T component, or nil if e is dead, lacks T,
// or T is a shared component. The pointer is valid until the next structural
// change to e's archetype.
func Comp[T any](w *World, e Entity) *T {
	ct := TypeOf[T](w)
	w.mu.RLock()
	defer w.mu.RUnlock()
	return compLocked[T](w, e, ct)
}

func compLocked[T any](w *World, e Entity, ct ComponentType) *T {
	rec := w.recordLocked(e)
	if rec == nil || rec.arch == nil {
		return nil
	}
	c := typedColumnOf[T](rec.arch, ct)
	if c == nil {
		return nil
	}
	return c.get(rec.arch.Row(e.ID))
}

// Has reports whether e holds a T component.
func Has[T any](w *World, e Entity) bool {
	return w.HasComponent(e, TypeOf[T](w))
}

// TryAdd adds a zero T (and T's requirements) to e and returns a pointer to
// it. It returns nil if e is dead, already has T, or T is shared; use
// SetShared for shared components.
func TryAdd[T any](w *World, e Entity) *T {
	ct := TypeOf[T](w)
	if w.registry.Kind(ct) == KindShared {
		return nil
	}
	w.mu.Lock()
	defer w.unlock()
	a, row, added := w.addLocked(e, ct)
	if !added {
		return nil
	}
	if c := typedColumnOf[T](a, ct); c != nil {
		return c.get(row)
	}
	return nil
}

// GetOrAdd returns e's T component, adding a zero value first if needed. It
// returns nil without touching e if T is shared.
func GetOrAdd[T any](w *World, e Entity) *T {
	ct := TypeOf[T](w)
	if w.registry.Kind(ct) == KindShared {
		return nil
	}
	w.mu.Lock()
	defer w.unlock()
	a, row, _ := w.addLocked(e, ct)
	if a == nil {
		return nil
	}
	if c := typedColumnOf[T](a, ct); c != nil {
		return c.get(row)
	}
	return nil
}

// Set stores val as e's T component, adding it if needed. A value being
// replaced is disposed first when T implements Disposer. It returns false if
// e is dead or T is shared.
func Set[T any](w *World, e Entity, val T) bool {
	ct := TypeOf[T](w)
	if w.registry.Kind(ct) == KindShared {
		return false
	}
	w.mu.Lock()
	defer w.unlock()
	a, row, added := w.addLocked(e, ct)
	if a == nil {
		return false
	}
	c := typedColumnOf[T](a, ct)
	if c == nil {
		return false
	}
	if !added {
		c.disposeRow(row)
	}
	*c.get(row) = val
	return true
}

// Remove drops e's T component. It returns false if e is dead or lacks T.
func Remove[T any](w *World, e Entity) bool {
	return w.RemoveComponent(e, TypeOf[T](w))
}

// SharedPoolOf returns w's pool for the shared component T, or nil if T is
// not registered as shared.
func SharedPoolOf[T comparable](w *World) *SharedPool[T] {
	ct := TypeOf[T](w)
	if w.registry.Kind(ct) != KindShared {
		return nil
	}
	w.mu.Lock()
	defer w.unlock()
	p, _ := w.storeLocked(ct).(*SharedPool[T])
	return p
}

// SetShared points e's shared T component at a pooled copy of val, adding the
// component if needed. Equal values share one pool slot.
func SetShared[T comparable](w *World, e Entity, val T) bool {
	ct := TypeOf[T](w)
	if w.registry.Kind(ct) != KindShared {
		return false
	}
	w.mu.Lock()
	defer w.unlock()
	a, row, _ := w.addLocked(e, ct)
	if a == nil {
		return false
	}
	c, ok := a.column(ct).(*sharedColumn)
	if !ok {
		return false
	}
	pool, ok := c.store.(*SharedPool[T])
	if !ok {
		return false
	}
	c.assign(row, pool.Add(val))
	return true
}

// GetShared returns the value of e's shared T component. It reports false if
// e lacks T or the component is unset.
func GetShared[T comparable](w *World, e Entity) (T, bool) {
	var zero T
	ct := TypeOf[T](w)
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec := w.recordLocked(e)
	if rec == nil || rec.arch == nil {
		return zero, false
	}
	c, ok := rec.arch.column(ct).(*sharedColumn)
	if !ok {
		return zero, false
	}
	pool, ok := c.store.(*SharedPool[T])
	if !ok {
		return zero, false
	}
	return pool.Get(c.index(rec.arch.Row(e.ID)))
}

// SharedIndex returns the 1-based pool index e's shared component ct points
// at; 0 when unset or absent.
func (w *World) SharedIndex(e Entity, ct ComponentType) uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec := w.recordLocked(e)
	if rec == nil || rec.arch == nil {
		return 0
	}
	c, ok := rec.arch.column(ct).(*sharedColumn)
	if !ok {
		return 0
	}
	return c.index(rec.arch.Row(e.ID))
}
