package kouzou

import (
	"sync"

	"github.com/edwinsyarief/kouzou/container"
)

// sharedStore is the type-erased side of a SharedPool used by shared columns.
type sharedStore interface {
	Ref(idx uint32) bool
	Unref(idx uint32) bool
}

// Handle identifies a pool slot together with the generation it was issued
// for. A handle outlives its slot safely: once the slot is freed and reused,
// the generation no longer matches.
type Handle struct {
	Index uint32 // 1-based; 0 is the unset handle
	Gen   uint32
}

// IsZero reports whether h is the unset handle.
func (h Handle) IsZero() bool { return h.Index == 0 }

type sharedEntry[T any] struct {
	value T
	refs  int32
	gen   uint32
	live  bool
}

// SharedPool is a deduplicating, reference-counted store for values that are
// too large or too pointer-heavy to copy into every row. Entities keep only a
// 1-based index. Insertion scans live entries for an equal value, so it is
// O(n) in the number of distinct values.
type SharedPool[T any] struct {
	mu      sync.Mutex
	entries *container.IndexPool[sharedEntry[T]]
	equal   func(a, b T) bool
}

// NewSharedPool creates a pool that deduplicates with ==.
func NewSharedPool[T comparable]() *SharedPool[T] {
	return NewSharedPoolFunc(func(a, b T) bool { return a == b })
}

// NewSharedPoolFunc creates a pool that deduplicates with equal. A nil equal
// disables deduplication: every Add takes a fresh slot.
func NewSharedPoolFunc[T any](equal func(a, b T) bool) *SharedPool[T] {
	return &SharedPool[T]{
		entries: container.NewIndexPool[sharedEntry[T]](8, 8),
		equal:   equal,
	}
}

// Add returns the 1-based index of a slot holding v. An equal live value is
// reused and its reference count incremented; otherwise a new slot starts at
// one reference.
func (p *SharedPool[T]) Add(v T) uint32 {
	h := p.AddHandle(v)
	return h.Index
}

// AddHandle is Add returning the slot's generation as well.
func (p *SharedPool[T]) AddHandle(v T) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.equal != nil {
		n := p.entries.Len()
		for i := range n {
			e := p.entries.Get(i)
			if e.live && p.equal(e.value, v) {
				e.refs++
				return Handle{Index: uint32(i) + 1, Gen: e.gen}
			}
		}
	}
	i := p.entries.Claim()
	e := p.entries.Get(i)
	e.gen++
	e.value = v
	e.refs = 1
	e.live = true
	return Handle{Index: uint32(i) + 1, Gen: e.gen}
}

// entry must be called with p.mu held.
func (p *SharedPool[T]) entry(idx uint32) *sharedEntry[T] {
	if idx == 0 || int(idx) > p.entries.Len() {
		return nil
	}
	e := p.entries.Get(int(idx) - 1)
	if !e.live {
		return nil
	}
	return e
}

// Ref adds a reference to the slot at idx.
func (p *SharedPool[T]) Ref(idx uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(idx)
	if e == nil {
		return false
	}
	e.refs++
	return true
}

// Unref drops a reference and frees the slot when none remain. It reports
// whether the slot was freed.
func (p *SharedPool[T]) Unref(idx uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unrefLocked(idx)
}

func (p *SharedPool[T]) unrefLocked(idx uint32) bool {
	e := p.entry(idx)
	if e == nil {
		return false
	}
	e.refs--
	if e.refs > 0 {
		return false
	}
	var zero T
	e.value = zero
	e.refs = 0
	e.live = false
	p.entries.RemoveAt(int(idx)-1, 1)
	return true
}

// RefHandle is Ref guarded by the handle's generation.
func (p *SharedPool[T]) RefHandle(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(h.Index)
	if e == nil || e.gen != h.Gen {
		return false
	}
	e.refs++
	return true
}

// UnrefHandle is Unref guarded by the handle's generation.
func (p *SharedPool[T]) UnrefHandle(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(h.Index)
	if e == nil || e.gen != h.Gen {
		return false
	}
	return p.unrefLocked(h.Index)
}

// Get returns the value at idx.
func (p *SharedPool[T]) Get(idx uint32) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(idx)
	if e == nil {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Resolve returns the value h refers to, failing for stale handles.
func (p *SharedPool[T]) Resolve(h Handle) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(h.Index)
	if e == nil || e.gen != h.Gen {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Update replaces the value at idx in place for every holder.
func (p *SharedPool[T]) Update(idx uint32, v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(idx)
	if e == nil {
		return false
	}
	e.value = v
	return true
}

// RefCount returns the number of references held on idx; zero when free.
func (p *SharedPool[T]) RefCount(idx uint32) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(idx)
	if e == nil {
		return 0
	}
	return e.refs
}

// Len returns the number of live slots.
func (p *SharedPool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries.Live()
}

// Managed is a component that refers to a value owned by a SharedPool. It is
// a plain handle, so rows stay small and copyable; cloning an entity takes a
// new reference and destroying it releases one.
type Managed[T any] struct {
	pool *SharedPool[T]
	h    Handle
}

// NewManaged stores v in pool and returns a component holding one reference.
func NewManaged[T any](pool *SharedPool[T], v T) Managed[T] {
	return Managed[T]{pool: pool, h: pool.AddHandle(v)}
}

// Handle returns the underlying pool handle.
func (m *Managed[T]) Handle() Handle { return m.h }

// Get resolves the managed value.
func (m *Managed[T]) Get() (T, bool) {
	if m.pool == nil {
		var zero T
		return zero, false
	}
	return m.pool.Resolve(m.h)
}

// Valid reports whether the handle still resolves.
func (m *Managed[T]) Valid() bool {
	_, ok := m.Get()
	return ok
}

// OnClone implements Cloner.
func (m *Managed[T]) OnClone() {
	if m.pool != nil {
		m.pool.RefHandle(m.h)
	}
}

// Dispose implements Disposer.
func (m *Managed[T]) Dispose() {
	if m.pool != nil {
		m.pool.UnrefHandle(m.h)
	}
	m.pool = nil
	m.h = Handle{}
}
