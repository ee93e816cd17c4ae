package kouzou

// Predicate matches archetypes by signature. Predicates compose with And, Or
// and Not and are evaluated once per archetype, not per entity.
type Predicate interface {
	Match(a *Archetype) bool
}

type allOf struct{ m bitmask256 }

func (p allOf) Match(a *Archetype) bool { return a.sig.mask.contains(p.m) }

type anyOf struct{ m bitmask256 }

func (p anyOf) Match(a *Archetype) bool { return a.sig.mask.intersects(p.m) }

type noneOf struct{ m bitmask256 }

func (p noneOf) Match(a *Archetype) bool { return !a.sig.mask.intersects(p.m) }

type and []Predicate

func (p and) Match(a *Archetype) bool {
	for _, q := range p {
		if !q.Match(a) {
			return false
		}
	}
	return true
}

type or []Predicate

func (p or) Match(a *Archetype) bool {
	for _, q := range p {
		if q.Match(a) {
			return true
		}
	}
	return false
}

type not struct{ p Predicate }

func (p not) Match(a *Archetype) bool { return !p.p.Match(a) }

// All matches archetypes holding every one of types.
func All(types ...ComponentType) Predicate {
	return allOf{NewSignature(types...).mask}
}

// Any matches archetypes holding at least one of types. Any() matches
// nothing.
func Any(types ...ComponentType) Predicate {
	return anyOf{NewSignature(types...).mask}
}

// None matches archetypes holding none of types.
func None(types ...ComponentType) Predicate {
	return noneOf{NewSignature(types...).mask}
}

// And matches when every p matches. And() matches everything.
func And(p ...Predicate) Predicate { return and(p) }

// Or matches when at least one p matches.
func Or(p ...Predicate) Predicate { return or(p) }

// Not inverts p.
func Not(p Predicate) Predicate { return not{p} }

// Query is a cached selection of archetypes. The match list is rebuilt only
// when the world has created archetypes since the last call, since existing
// archetypes never change their signature.
type Query struct {
	world   *World
	pred    Predicate
	matches []*Archetype
	seen    int // archetypes already tested
}

// Select creates a query matching archetypes that satisfy every predicate.
func (w *World) Select(preds ...Predicate) *Query {
	var p Predicate = and(preds)
	if len(preds) == 1 {
		p = preds[0]
	}
	return &Query{world: w, pred: p}
}

// Result returns the matching archetypes in creation order, empty ones
// included. The slice is owned by the query.
func (q *Query) Result() []*Archetype {
	w := q.world
	w.mu.RLock()
	list := w.root.list
	w.mu.RUnlock()
	for ; q.seen < len(list); q.seen++ {
		if a := list[q.seen]; q.pred.Match(a) {
			q.matches = append(q.matches, a)
		}
	}
	return q.matches
}

// Count returns the number of entities in matching archetypes.
func (q *Query) Count() int {
	n := 0
	for _, a := range q.Result() {
		n += a.Len()
	}
	return n
}

// Each calls fn for every non-empty matching archetype.
func (q *Query) Each(fn func(a *Archetype)) {
	for _, a := range q.Result() {
		if a.Len() > 0 {
			fn(a)
		}
	}
}

// Entities returns a snapshot of the handles of every matching entity.
func (q *Query) Entities() []Entity {
	res := q.Result()
	w := q.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Entity
	for _, a := range res {
		for row := range a.count {
			out = append(out, w.entityAt(a.rows.GetKey(uint32(row))))
		}
	}
	return out
}
