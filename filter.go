package kouzou

// Filter is a cursor over every entity holding a T component. It walks the
// columns of the matching archetypes directly and takes no lock, so it must
// not run concurrently with structural changes to the same world.
//
// Example:
//
//	f := kouzou.NewFilter[Position](world)
//	for f.Next() {
//	    p := f.Get()
//	    p.X += 1
//	}
type Filter[T any] struct {
	query  *Query
	arches []*Archetype
	col    []T
	cur    *Archetype
	ct     ComponentType
	arch   int
	row    int
}

// NewFilter creates a filter over entities with T that also satisfy preds.
func NewFilter[T any](w *World, preds ...Predicate) *Filter[T] {
	ct := TypeOf[T](w)
	f := &Filter[T]{
		query: w.Select(append([]Predicate{All(ct)}, preds...)...),
		ct:    ct,
	}
	f.Reset()
	return f
}

// Reset rewinds the filter and picks up archetypes created since the last
// iteration.
func (f *Filter[T]) Reset() {
	f.arches = f.query.Result()
	f.arch = -1
	f.row = -1
	f.cur = nil
	f.col = nil
}

// Next advances to the next entity and reports whether there is one.
func (f *Filter[T]) Next() bool {
	f.row++
	for f.cur == nil || f.row >= f.cur.count {
		f.arch++
		if f.arch >= len(f.arches) {
			f.cur = nil
			return false
		}
		a := f.arches[f.arch]
		if a.count == 0 {
			continue
		}
		c := typedColumnOf[T](a, f.ct)
		if c == nil {
			// T is shared in this archetype
			continue
		}
		f.cur = a
		f.col = c.slice()
		f.row = 0
	}
	return true
}

// Get returns the current entity's T.
func (f *Filter[T]) Get() *T {
	return &f.col[f.row]
}

// Entity returns the current entity.
func (f *Filter[T]) Entity() Entity {
	return f.query.world.entityAt(f.cur.EntityIDAt(f.row))
}

// Filter2 is Filter over entities holding both A and B.
type Filter2[A, B any] struct {
	query  *Query
	arches []*Archetype
	colA   []A
	colB   []B
	cur    *Archetype
	ctA    ComponentType
	ctB    ComponentType
	arch   int
	row    int
}

// NewFilter2 creates a filter over entities with A and B.
func NewFilter2[A, B any](w *World, preds ...Predicate) *Filter2[A, B] {
	ctA, ctB := TypeOf[A](w), TypeOf[B](w)
	f := &Filter2[A, B]{
		query: w.Select(append([]Predicate{All(ctA, ctB)}, preds...)...),
		ctA:   ctA,
		ctB:   ctB,
	}
	f.Reset()
	return f
}

// Reset rewinds the filter.
func (f *Filter2[A, B]) Reset() {
	f.arches = f.query.Result()
	f.arch = -1
	f.row = -1
	f.cur = nil
	f.colA, f.colB = nil, nil
}

// Next advances to the next entity.
func (f *Filter2[A, B]) Next() bool {
	f.row++
	for f.cur == nil || f.row >= f.cur.count {
		f.arch++
		if f.arch >= len(f.arches) {
			f.cur = nil
			return false
		}
		a := f.arches[f.arch]
		if a.count == 0 {
			continue
		}
		ca, cb := typedColumnOf[A](a, f.ctA), typedColumnOf[B](a, f.ctB)
		if ca == nil || cb == nil {
			continue
		}
		f.cur = a
		f.colA, f.colB = ca.slice(), cb.slice()
		f.row = 0
	}
	return true
}

// Get returns the current entity's components.
func (f *Filter2[A, B]) Get() (*A, *B) {
	return &f.colA[f.row], &f.colB[f.row]
}

// Entity returns the current entity.
func (f *Filter2[A, B]) Entity() Entity {
	return f.query.world.entityAt(f.cur.EntityIDAt(f.row))
}

// Filter3 is Filter over entities holding A, B and C.
type Filter3[A, B, C any] struct {
	query  *Query
	arches []*Archetype
	colA   []A
	colB   []B
	colC   []C
	cur    *Archetype
	ctA    ComponentType
	ctB    ComponentType
	ctC    ComponentType
	arch   int
	row    int
}

// NewFilter3 creates a filter over entities with A, B and C.
func NewFilter3[A, B, C any](w *World, preds ...Predicate) *Filter3[A, B, C] {
	ctA, ctB, ctC := TypeOf[A](w), TypeOf[B](w), TypeOf[C](w)
	f := &Filter3[A, B, C]{
		query: w.Select(append([]Predicate{All(ctA, ctB, ctC)}, preds...)...),
		ctA:   ctA,
		ctB:   ctB,
		ctC:   ctC,
	}
	f.Reset()
	return f
}

// Reset rewinds the filter.
func (f *Filter3[A, B, C]) Reset() {
	f.arches = f.query.Result()
	f.arch = -1
	f.row = -1
	f.cur = nil
	f.colA, f.colB, f.colC = nil, nil, nil
}

// Next advances to the next entity.
func (f *Filter3[A, B, C]) Next() bool {
	f.row++
	for f.cur == nil || f.row >= f.cur.count {
		f.arch++
		if f.arch >= len(f.arches) {
			f.cur = nil
			return false
		}
		a := f.arches[f.arch]
		if a.count == 0 {
			continue
		}
		ca, cb, cc := typedColumnOf[A](a, f.ctA), typedColumnOf[B](a, f.ctB), typedColumnOf[C](a, f.ctC)
		if ca == nil || cb == nil || cc == nil {
			continue
		}
		f.cur = a
		f.colA, f.colB, f.colC = ca.slice(), cb.slice(), cc.slice()
		f.row = 0
	}
	return true
}

// Get returns the current entity's components.
func (f *Filter3[A, B, C]) Get() (*A, *B, *C) {
	return &f.colA[f.row], &f.colB[f.row], &f.colC[f.row]
}

// Entity returns the current entity.
func (f *Filter3[A, B, C]) Entity() Entity {
	return f.query.world.entityAt(f.cur.EntityIDAt(f.row))
}

// View returns a's T column as a slice of length a.Len(), or nil when a does
// not store T per entity. The slice aliases the column: writes go straight to
// storage, and any structural change to a invalidates it.
func View[T any](w *World, a *Archetype) []T {
	c := typedColumnOf[T](a, TypeOf[T](w))
	if c == nil {
		return nil
	}
	return c.slice()
}

// View2 returns two columns of a sharing one length. Both are nil unless a
// stores A and B.
func View2[A, B any](w *World, a *Archetype) ([]A, []B) {
	ca, cb := typedColumnOf[A](a, TypeOf[A](w)), typedColumnOf[B](a, TypeOf[B](w))
	if ca == nil || cb == nil {
		return nil, nil
	}
	return ca.slice(), cb.slice()
}

// View3 returns three columns of a sharing one length.
func View3[A, B, C any](w *World, a *Archetype) ([]A, []B, []C) {
	ca, cb, cc := typedColumnOf[A](a, TypeOf[A](w)), typedColumnOf[B](a, TypeOf[B](w)), typedColumnOf[C](a, TypeOf[C](w))
	if ca == nil || cb == nil || cc == nil {
		return nil, nil, nil
	}
	return ca.slice(), cb.slice(), cc.slice()
}
