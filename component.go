package kouzou

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// MaxComponentTypes is the number of distinct component types a Registry can
// hold. Signatures are 256-bit masks.
const MaxComponentTypes = 256

// ComponentType is the registry id of a component shape.
type ComponentType uint16

// Kind classifies how a component is stored.
type Kind uint8

const (
	// KindNormal components are stored by value in every entity row.
	KindNormal Kind = iota
	// KindShared components are deduplicated in a per-world SharedPool;
	// rows hold only a 1-based pool index (0 = unset).
	KindShared
)

func (k Kind) String() string {
	if k == KindShared {
		return "shared"
	}
	return "normal"
}

var (
	ErrComponentRegistered = errors.New("kouzou: component already registered")
	ErrComponentSealed     = errors.New("kouzou: component already in use")
	ErrRequireCycle        = errors.New("kouzou: circular component requirement")
	ErrTooManyComponents   = errors.New("kouzou: too many component types")
)

// Disposer is implemented by components that own external resources. Dispose
// runs on the row being destroyed, or on a column dropped by a migration.
type Disposer interface {
	Dispose()
}

// Cloner is implemented by components that need deep-copy semantics. OnClone
// runs on the freshly copied value in the clone's row.
type Cloner interface {
	OnClone()
}

// ComponentData describes a registered component type.
type ComponentData struct {
	Type     reflect.Type
	Name     string
	Kind     Kind
	Requires []ComponentType
}

type componentInfo struct {
	typ       reflect.Type
	kind      Kind
	requires  []ComponentType
	explicit  bool
	sealed    bool
	normal    Signature // memoized closure, valid once sealed
	shared    Signature
	newColumn func(ct ComponentType, capacity int) column
	newStore  func() sharedStore
}

// Registry assigns every component shape a stable id and records its
// required-component declarations. A Registry may be shared by several worlds.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]ComponentType
	infos []*componentInfo
	log   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[reflect.Type]ComponentType, 16),
		infos: make([]*componentInfo, 0, 16),
		log:   zap.NewNop(),
	}
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	r.mu.Lock()
	r.log = log
	r.mu.Unlock()
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.infos)
}

// ComponentOption configures an explicit registration.
type ComponentOption func(r *Registry, reg *registration)

type registration struct {
	requires []ComponentType
}

// Require declares that T must be present whenever the registered component
// is. An unseen T is registered implicitly as a normal component.
func Require[T any]() ComponentOption {
	return func(r *Registry, reg *registration) {
		reg.requires = append(reg.requires, r.lookupOrAdd(reflect.TypeFor[T](), columnFactory[T]()))
	}
}

// RequireTypes declares requirements by id.
func RequireTypes(types ...ComponentType) ComponentOption {
	return func(_ *Registry, reg *registration) {
		reg.requires = append(reg.requires, types...)
	}
}

// ComponentTypeOf returns the id for T, registering it as a normal component
// with no requirements on first observation. It panics when the registry is
// full.
func ComponentTypeOf[T any](r *Registry) ComponentType {
	t := reflect.TypeFor[T]()
	r.mu.RLock()
	ct, ok := r.types[t]
	r.mu.RUnlock()
	if ok {
		return ct
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupOrAdd(t, columnFactory[T]())
}

// RegisterComponent explicitly registers T as a normal component. A type may
// be explicitly registered once; a type that was only observed implicitly can
// still receive its requirement list as long as no archetype has used it.
func RegisterComponent[T any](r *Registry, opts ...ComponentOption) (ComponentType, error) {
	return r.register(reflect.TypeFor[T](), KindNormal, columnFactory[T](), nil, opts)
}

// RegisterShared explicitly registers T as a shared component. Values are
// deduplicated by ==.
func RegisterShared[T comparable](r *Registry, opts ...ComponentOption) (ComponentType, error) {
	newStore := func() sharedStore { return NewSharedPool[T]() }
	return r.register(reflect.TypeFor[T](), KindShared, nil, newStore, opts)
}

func columnFactory[T any]() func(ComponentType, int) column {
	return func(ct ComponentType, capacity int) column {
		return newTypedColumn[T](ct, capacity)
	}
}

func (r *Registry) register(t reflect.Type, kind Kind, newCol func(ComponentType, int) column, newStore func() sharedStore, opts []ComponentOption) (ComponentType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reg registration
	for _, opt := range opts {
		opt(r, &reg)
	}

	ct, seen := r.types[t]
	if seen {
		info := r.infos[ct]
		if info.explicit {
			r.log.Warn("duplicate component registration", zap.Stringer("type", t))
			return ct, fmt.Errorf("%s: %w", t, ErrComponentRegistered)
		}
		if info.sealed {
			return ct, fmt.Errorf("%s: %w", t, ErrComponentSealed)
		}
	} else {
		if len(r.infos) >= MaxComponentTypes {
			return 0, fmt.Errorf("%s: %w", t, ErrTooManyComponents)
		}
		ct = r.lookupOrAdd(t, newCol)
	}

	for _, req := range reg.requires {
		if int(req) >= len(r.infos) {
			return ct, fmt.Errorf("%s requires unknown type %d", t, req)
		}
		if req == ct || r.reaches(req, ct) {
			return ct, fmt.Errorf("%s -> %s: %w", t, r.infos[req].typ, ErrRequireCycle)
		}
	}

	info := r.infos[ct]
	info.kind = kind
	info.explicit = true
	info.requires = dedupTypes(reg.requires)
	if kind == KindShared {
		info.newColumn = nil
		info.newStore = newStore
	}
	return ct, nil
}

// lookupOrAdd must be called with r.mu held for writing.
func (r *Registry) lookupOrAdd(t reflect.Type, newCol func(ComponentType, int) column) ComponentType {
	if ct, ok := r.types[t]; ok {
		return ct
	}
	if len(r.infos) >= MaxComponentTypes {
		panic(fmt.Sprintf("kouzou: cannot register %s: maximum number of component types (%d) reached", t, MaxComponentTypes))
	}
	ct := ComponentType(len(r.infos))
	r.types[t] = ct
	r.infos = append(r.infos, &componentInfo{typ: t, newColumn: newCol})
	return ct
}

// reaches reports whether to is in the requirement graph below from.
func (r *Registry) reaches(from, to ComponentType) bool {
	seen := make(map[ComponentType]bool)
	stack := []ComponentType{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, r.infos[cur].requires...)
	}
	return false
}

// Data returns the description of ct.
func (r *Registry) Data(ct ComponentType) (ComponentData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(ct) >= len(r.infos) {
		return ComponentData{}, false
	}
	info := r.infos[ct]
	return ComponentData{
		Type:     info.typ,
		Name:     info.typ.String(),
		Kind:     info.kind,
		Requires: append([]ComponentType(nil), info.requires...),
	}, true
}

// Kind returns the storage kind of ct.
func (r *Registry) Kind(ct ComponentType) Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(ct) >= len(r.infos) {
		return KindNormal
	}
	return r.infos[ct].kind
}

// Closure returns ct together with everything it transitively requires,
// split into normal and shared sets. The result is memoized and every member
// is sealed against later re-registration.
func (r *Registry) Closure(ct ComponentType) (normal, shared Signature) {
	r.mu.RLock()
	info := r.infos[ct]
	if info.sealed {
		normal, shared = info.normal, info.shared
		r.mu.RUnlock()
		return normal, shared
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if info.sealed {
		return info.normal, info.shared
	}
	var nm, sm bitmask256
	seen := make(map[ComponentType]bool)
	stack := []ComponentType{ct}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		ci := r.infos[cur]
		if ci.kind == KindShared {
			sm.set(cur)
		} else {
			nm.set(cur)
		}
		stack = append(stack, ci.requires...)
	}
	for member := range seen {
		r.infos[member].sealed = true
	}
	info.normal = signatureFromMask(nm)
	info.shared = signatureFromMask(sm)
	return info.normal, info.shared
}

// Split partitions a signature into its normal and shared members.
func (r *Registry) Split(s Signature) (normal, shared Signature) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var nm, sm bitmask256
	for _, ct := range s.ids {
		if r.infos[ct].kind == KindShared {
			sm.set(ct)
		} else {
			nm.set(ct)
		}
	}
	return signatureFromMask(nm), signatureFromMask(sm)
}

func (r *Registry) newColumn(ct ComponentType, capacity int) column {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infos[ct].newColumn(ct, capacity)
}

func (r *Registry) newStore(ct ComponentType) sharedStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infos[ct].newStore()
}

func dedupTypes(types []ComponentType) []ComponentType {
	if len(types) == 0 {
		return nil
	}
	return NewSignature(types...).Types()
}
