package container

// DefaultIncrement is the growth step used by pools created with a zero
// increment.
const DefaultIncrement = 64

// IndexPool is a growable dense array with O(1) append and removal through
// free-slot reuse. Removed slots keep their last value until reclaimed, so a
// caller may read back bookkeeping (such as a generation counter) when it
// claims a recycled index.
//
// Interior holes are never compacted: indices handed out stay valid until the
// caller removes them. Removing the tail shrinks the logical size and cascades
// through any free indices that become tail-adjacent.
type IndexPool[T any] struct {
	items     []T
	free      FreeList
	count     int // high-water mark of handed-out indices
	increment int
}

// NewIndexPool creates a pool with room for capacity elements. increment is
// the minimum number of slots added on growth; zero selects DefaultIncrement.
func NewIndexPool[T any](capacity, increment int) *IndexPool[T] {
	if increment <= 0 {
		increment = DefaultIncrement
	}
	return &IndexPool[T]{
		items:     make([]T, max(capacity, 0)),
		increment: increment,
	}
}

// Len returns the logical size: one past the highest index in use.
func (p *IndexPool[T]) Len() int {
	return p.count
}

// Live returns the number of indices currently in use.
func (p *IndexPool[T]) Live() int {
	return p.count - p.free.Len()
}

// Cap returns the number of allocated slots.
func (p *IndexPool[T]) Cap() int {
	return len(p.items)
}

// FreeCount returns the number of interior slots waiting for reuse.
func (p *IndexPool[T]) FreeCount() int {
	return p.free.Len()
}

// Add stores v in a reclaimed slot if one exists, otherwise at the end.
func (p *IndexPool[T]) Add(v T) int {
	i := p.Claim()
	p.items[i] = v
	return i
}

// Claim reserves a slot without writing it. A reused slot still holds the
// value it had when it was removed.
func (p *IndexPool[T]) Claim() int {
	if i, ok := p.free.PopMin(); ok {
		return i
	}
	if p.count == len(p.items) {
		p.grow(1)
	}
	i := p.count
	p.count++
	return i
}

// ClaimTail reserves a slot at the end, ignoring the free-list. Dense users
// (columns) rely on this to keep rows contiguous.
func (p *IndexPool[T]) ClaimTail() int {
	if p.count == len(p.items) {
		p.grow(1)
	}
	i := p.count
	p.count++
	return i
}

// Get returns a pointer to the element at i. Querying a removed index yields
// whatever was last stored there.
func (p *IndexPool[T]) Get(i int) *T {
	return &p.items[i]
}

// Set overwrites the element at i.
func (p *IndexPool[T]) Set(i int, v T) {
	p.items[i] = v
}

// Slice returns the backing elements [0, Len()). The slice aliases the pool
// and is invalidated by growth.
func (p *IndexPool[T]) Slice() []T {
	return p.items[:p.count:p.count]
}

// IsFree reports whether i is outside the live range or waiting in the
// free-list.
func (p *IndexPool[T]) IsFree(i int) bool {
	return i < 0 || i >= p.count || p.free.Contains(i)
}

// RemoveAt releases count slots starting at index.
func (p *IndexPool[T]) RemoveAt(index, count int) {
	if count <= 0 || index < 0 || index >= p.count {
		return
	}
	if index+count > p.count {
		count = p.count - index
	}
	if index+count == p.count {
		// free entries inside the removed tail go with it
		p.free.RemoveFrom(index)
		p.count = index
		p.trim()
		return
	}
	p.free.InsertRange(index, count)
}

// trim pops tail-adjacent free indices until the tail is live.
func (p *IndexPool[T]) trim() {
	for p.count > 0 {
		top, ok := p.free.Max()
		if !ok || top != p.count-1 {
			return
		}
		p.free.PopMax()
		p.count--
	}
}

// Clear forgets every index. Allocated storage is kept.
func (p *IndexPool[T]) Clear() {
	p.count = 0
	p.free.Clear()
}

// Reserve ensures room for n more tail elements without reallocation.
func (p *IndexPool[T]) Reserve(n int) {
	if p.count+n > len(p.items) {
		p.grow(p.count + n - len(p.items))
	}
}

// grow extends the backing array by at least need slots, doubling or padding
// by the configured increment, whichever is larger. Existing elements are
// preserved.
func (p *IndexPool[T]) grow(need int) {
	n := max(len(p.items), p.increment, need)
	items := make([]T, len(p.items)+n)
	copy(items, p.items)
	p.items = items
}
