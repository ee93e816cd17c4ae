package kouzou

import "fmt"

// Entity represents a unique entity in a World. ID is a recyclable slot in
// the world's entity table; Version is the generation the handle was issued
// for, so a handle to a destroyed entity stays invalid after its slot is
// reused.
type Entity struct {
	ID      uint32 // The slot of the entity in the entity table.
	Version uint32 // The generation of the slot, starting at 1.
}

// NullEntity is the zero handle. It is never alive.
var NullEntity Entity

// IsNull reports whether e is the null handle.
func (e Entity) IsNull() bool {
	return e.Version == 0
}

func (e Entity) String() string {
	if e.IsNull() {
		return "Entity(null)"
	}
	return fmt.Sprintf("Entity(%d.v%d)", e.ID, e.Version)
}

// entityRecord is one slot of the entity table.
type entityRecord struct {
	arch    *Archetype // nil while the entity has no components
	version uint32     // survives the slot being freed
	alive   bool
}
