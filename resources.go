package kouzou

import (
	"reflect"
	"sync"
)

// Resources is a world-scoped store of singletons keyed by type: pipeline
// handles, configuration, pools shared by several systems. At most one value
// per type is present at a time. IDs are reused after removal.
type Resources struct {
	mu      sync.RWMutex
	items   []any
	types   map[reflect.Type]int
	freeIds []int
}

// Add stores res and returns its ID. Panics if res is nil or a resource of
// the same type already exists: both indicate a wiring bug at startup.
func (r *Resources) Add(res any) int {
	if res == nil {
		panic("kouzou: cannot add nil resource")
	}
	t := reflect.TypeOf(res)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = make(map[reflect.Type]int)
	}
	if _, ok := r.types[t]; ok {
		panic("kouzou: resource of type " + t.String() + " already exists")
	}
	var id int
	if len(r.freeIds) > 0 {
		id = r.freeIds[len(r.freeIds)-1]
		r.freeIds = r.freeIds[:len(r.freeIds)-1]
		r.items[id] = res
	} else {
		r.items = append(r.items, res)
		id = len(r.items) - 1
	}
	r.types[t] = id
	return id
}

// Has checks if a resource with the given ID exists.
func (r *Resources) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasLocked(id)
}

func (r *Resources) hasLocked(id int) bool {
	return id >= 0 && id < len(r.items) && r.items[id] != nil
}

// Get retrieves the resource by ID, or nil if it doesn't exist.
func (r *Resources) Get(id int) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasLocked(id) {
		return nil
	}
	return r.items[id]
}

// Remove removes the resource by ID if it exists, marking the ID as free.
func (r *Resources) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasLocked(id) {
		return
	}
	delete(r.types, reflect.TypeOf(r.items[id]))
	r.items[id] = nil
	r.freeIds = append(r.freeIds, id)
}

// Clear removes all resources.
func (r *Resources) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
	r.items = r.items[:0]
	clear(r.types)
	r.freeIds = r.freeIds[:0]
}

// HasResource reports whether a *T resource exists, and its ID (-1 if not).
func HasResource[T any](r *Resources) (bool, int) {
	t := reflect.TypeFor[*T]()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.types[t]; ok {
		return true, id
	}
	return false, -1
}

// GetResource retrieves the *T resource and its ID, or nil and -1.
func GetResource[T any](r *Resources) (*T, int) {
	t := reflect.TypeFor[*T]()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.types[t]; ok {
		return r.items[id].(*T), id
	}
	return nil, -1
}

// MustGetResource is GetResource for resources that are wired at startup.
func MustGetResource[T any](r *Resources) *T {
	res, _ := GetResource[T](r)
	if res == nil {
		panic("kouzou: missing resource " + reflect.TypeFor[T]().String())
	}
	return res
}
