package kouzou

import "github.com/edwinsyarief/kouzou/container"

// column is one component's dense row storage inside an archetype. Rows are
// kept contiguous: removal swaps the last row into the hole, so the logical
// length of a column always equals the archetype's entity count.
type column interface {
	componentType() ComponentType
	len() int
	// appendZero adds a zeroed row and returns its index.
	appendZero() int
	// swapRemove moves the last row into row and shrinks by one. When dispose
	// is set the removed value is disposed first.
	swapRemove(row int, dispose bool)
	// moveRow copies srcRow into dst's dstRow without running hooks. dst
	// must be a column of the same component type.
	moveRow(dst column, srcRow, dstRow int)
	// cloneRow copies like moveRow and then runs the clone hook on the copy.
	cloneRow(dst column, srcRow, dstRow int)
	disposeRow(row int)
	// pointer returns a pointer to the row's value as any.
	pointer(row int) any
	clear(dispose bool)
}

// typedColumn stores values of T in an IndexPool used as a dense array.
type typedColumn[T any] struct {
	data     *container.IndexPool[T]
	ct       ComponentType
	disposer bool
	cloner   bool
}

func newTypedColumn[T any](ct ComponentType, capacity int) *typedColumn[T] {
	_, disposer := any((*T)(nil)).(Disposer)
	_, cloner := any((*T)(nil)).(Cloner)
	return &typedColumn[T]{
		data:     container.NewIndexPool[T](capacity, 0),
		ct:       ct,
		disposer: disposer,
		cloner:   cloner,
	}
}

func (c *typedColumn[T]) componentType() ComponentType { return c.ct }
func (c *typedColumn[T]) len() int                     { return c.data.Len() }

func (c *typedColumn[T]) appendZero() int {
	row := c.data.ClaimTail()
	var zero T
	c.data.Set(row, zero)
	return row
}

func (c *typedColumn[T]) swapRemove(row int, dispose bool) {
	if dispose {
		c.disposeRow(row)
	}
	last := c.data.Len() - 1
	if row != last {
		c.data.Set(row, *c.data.Get(last))
	}
	// release references held by the vacated slot
	var zero T
	c.data.Set(last, zero)
	c.data.RemoveAt(last, 1)
}

func (c *typedColumn[T]) moveRow(dst column, srcRow, dstRow int) {
	d := dst.(*typedColumn[T])
	d.data.Set(dstRow, *c.data.Get(srcRow))
}

func (c *typedColumn[T]) cloneRow(dst column, srcRow, dstRow int) {
	d := dst.(*typedColumn[T])
	d.data.Set(dstRow, *c.data.Get(srcRow))
	if d.cloner {
		any(d.data.Get(dstRow)).(Cloner).OnClone()
	}
}

func (c *typedColumn[T]) disposeRow(row int) {
	if c.disposer {
		any(c.data.Get(row)).(Disposer).Dispose()
	}
}

func (c *typedColumn[T]) pointer(row int) any {
	return c.data.Get(row)
}

func (c *typedColumn[T]) get(row int) *T {
	return c.data.Get(row)
}

// slice returns the live rows. It aliases the column and is invalidated by
// any structural change to the owning archetype.
func (c *typedColumn[T]) slice() []T {
	return c.data.Slice()
}

func (c *typedColumn[T]) clear(dispose bool) {
	n := c.data.Len()
	var zero T
	for row := range n {
		if dispose {
			c.disposeRow(row)
		}
		c.data.Set(row, zero)
	}
	c.data.Clear()
}

// sharedColumn stores 1-based SharedPool indices for a shared component.
// Disposal releases the row's reference; cloning takes a new one.
type sharedColumn struct {
	data  *container.IndexPool[uint32]
	store sharedStore
	ct    ComponentType
}

func newSharedColumn(ct ComponentType, store sharedStore, capacity int) *sharedColumn {
	return &sharedColumn{
		data:  container.NewIndexPool[uint32](capacity, 0),
		store: store,
		ct:    ct,
	}
}

func (c *sharedColumn) componentType() ComponentType { return c.ct }
func (c *sharedColumn) len() int                     { return c.data.Len() }

func (c *sharedColumn) appendZero() int {
	row := c.data.ClaimTail()
	c.data.Set(row, 0)
	return row
}

func (c *sharedColumn) swapRemove(row int, dispose bool) {
	if dispose {
		c.disposeRow(row)
	}
	last := c.data.Len() - 1
	if row != last {
		c.data.Set(row, *c.data.Get(last))
	}
	c.data.Set(last, 0)
	c.data.RemoveAt(last, 1)
}

func (c *sharedColumn) moveRow(dst column, srcRow, dstRow int) {
	dst.(*sharedColumn).data.Set(dstRow, *c.data.Get(srcRow))
}

func (c *sharedColumn) cloneRow(dst column, srcRow, dstRow int) {
	idx := *c.data.Get(srcRow)
	dst.(*sharedColumn).data.Set(dstRow, idx)
	if idx != 0 {
		c.store.Ref(idx)
	}
}

func (c *sharedColumn) disposeRow(row int) {
	if idx := *c.data.Get(row); idx != 0 {
		c.store.Unref(idx)
		c.data.Set(row, 0)
	}
}

func (c *sharedColumn) pointer(row int) any {
	return c.data.Get(row)
}

func (c *sharedColumn) index(row int) uint32 {
	return *c.data.Get(row)
}

// assign stores a new pool index in row, releasing the previous one.
func (c *sharedColumn) assign(row int, idx uint32) {
	old := *c.data.Get(row)
	c.data.Set(row, idx)
	if old != 0 {
		c.store.Unref(old)
	}
}

func (c *sharedColumn) clear(dispose bool) {
	for row := range c.data.Len() {
		if dispose {
			c.disposeRow(row)
		}
	}
	c.data.Clear()
}
