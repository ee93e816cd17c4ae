package kouzou

import "github.com/edwinsyarief/kouzou/container"

// ArchetypeID is the position of an archetype in its root.
type ArchetypeID uint32

// Archetype is a bucket of entities that share one exact, immutable set of
// component types. It owns one column per member type and a dual index map
// between entity IDs and rows.
//
// Removing an entity swaps the last row into the hole, so rows may be
// reordered by any removal. Row indices must not be cached across structural
// changes.
type Archetype struct {
	columns []column
	rows    *container.DualIndexMap // entity ID <-> row
	sig     Signature
	normal  Signature
	shared  Signature
	slots   [MaxComponentTypes]int16 // column index per component type; -1 if absent
	id      ArchetypeID
	count   int
}

func newArchetype(id ArchetypeID, normal, shared Signature, reg *Registry, storeFor func(ComponentType) sharedStore, capacity int) *Archetype {
	a := &Archetype{
		id:      id,
		normal:  normal,
		shared:  shared,
		sig:     normal.Merge(shared),
		rows:    container.NewDualIndexMap(capacity),
		columns: make([]column, 0, normal.Len()+shared.Len()),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	for _, ct := range normal.ids {
		a.slots[ct] = int16(len(a.columns))
		a.columns = append(a.columns, reg.newColumn(ct, capacity))
	}
	for _, ct := range shared.ids {
		a.slots[ct] = int16(len(a.columns))
		a.columns = append(a.columns, newSharedColumn(ct, storeFor(ct), capacity))
	}
	return a
}

// ID returns the archetype's position in its root.
func (a *Archetype) ID() ArchetypeID { return a.id }

// Signature returns the full member set.
func (a *Archetype) Signature() Signature { return a.sig }

// Normal returns the per-entity member types.
func (a *Archetype) Normal() Signature { return a.normal }

// Shared returns the shared member types.
func (a *Archetype) Shared() Signature { return a.shared }

// Len returns the number of entities stored.
func (a *Archetype) Len() int { return a.count }

// Has reports whether ct is a member.
func (a *Archetype) Has(ct ComponentType) bool {
	return a.sig.Contains(ct)
}

// AddEntity appends a zeroed row for id. It returns false if id already has a
// row here.
func (a *Archetype) AddEntity(id uint32) (int, bool) {
	if a.rows.HasKey(id) {
		return -1, false
	}
	row := a.count
	for _, c := range a.columns {
		c.appendZero()
	}
	a.rows.Set(id, uint32(row))
	a.count++
	return row, true
}

// RemoveEntity drops id's row, optionally disposing its values. The last row
// moves into the freed slot.
func (a *Archetype) RemoveEntity(id uint32, dispose bool) bool {
	r := a.rows.GetVal(id)
	if r == container.Null {
		return false
	}
	row := int(r)
	last := a.count - 1
	for _, c := range a.columns {
		c.swapRemove(row, dispose)
	}
	a.rows.RemoveByKey(id)
	if row != last {
		moved := a.rows.RemoveByVal(uint32(last))
		a.rows.Set(moved, uint32(row))
	}
	a.count--
	return true
}

// ContainsEntityID reports whether id has a row here.
func (a *Archetype) ContainsEntityID(id uint32) bool {
	return a.rows.HasKey(id)
}

// Row returns id's row, or -1.
func (a *Archetype) Row(id uint32) int {
	r := a.rows.GetVal(id)
	if r == container.Null {
		return -1
	}
	return int(r)
}

// EntityIDAt returns the entity ID stored at row, or container.Null.
func (a *Archetype) EntityIDAt(row int) uint32 {
	if row < 0 || row >= a.count {
		return container.Null
	}
	return a.rows.GetKey(uint32(row))
}

// EntityIDs returns the entity IDs in row order.
func (a *Archetype) EntityIDs() []uint32 {
	ids := make([]uint32, a.count)
	for row := range a.count {
		ids[row] = a.rows.GetKey(uint32(row))
	}
	return ids
}

// ComponentPointer returns a pointer to ct's value in row as any: *T for
// normal components, *uint32 (the pool index) for shared ones.
func (a *Archetype) ComponentPointer(ct ComponentType, row int) any {
	c := a.column(ct)
	if c == nil || row < 0 || row >= a.count {
		return nil
	}
	return c.pointer(row)
}

func (a *Archetype) column(ct ComponentType) column {
	if int(ct) >= MaxComponentTypes {
		return nil
	}
	s := a.slots[ct]
	if s < 0 {
		return nil
	}
	return a.columns[s]
}

// clear drops every row, disposing values when asked.
func (a *Archetype) clear(dispose bool) {
	for _, c := range a.columns {
		c.clear(dispose)
	}
	a.rows.Clear()
	a.count = 0
}

func typedColumnOf[T any](a *Archetype, ct ComponentType) *typedColumn[T] {
	c, _ := a.column(ct).(*typedColumn[T])
	return c
}
