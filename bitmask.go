package kouzou

import "math/bits"

// bitmask256 represents a set of up to 256 component types. It is the
// identity of a signature: two signatures with the same members produce the
// same mask regardless of the order the types were listed in.
type bitmask256 [4]uint64

// set enables the bit corresponding to the given component type.
func (m *bitmask256) set(ct ComponentType) {
	i := ct >> 6 // (ct / 64) to find the uint64 index
	o := ct & 63 // (ct % 64) to find the bit offset
	m[i] |= uint64(1) << uint64(o)
}

// unset disables the bit corresponding to the given component type.
func (m *bitmask256) unset(ct ComponentType) {
	i := ct >> 6
	o := ct & 63
	m[i] &= ^(uint64(1) << uint64(o))
}

// contains checks if all the bits set in sub are also set in m. This is used
// to determine if an archetype's component set is a superset of a query's
// required components.
func (m bitmask256) contains(sub bitmask256) bool {
	return (m[0]&sub[0]) == sub[0] &&
		(m[1]&sub[1]) == sub[1] &&
		(m[2]&sub[2]) == sub[2] &&
		(m[3]&sub[3]) == sub[3]
}

// containsBit checks if a specific bit is set in the mask.
func (m bitmask256) containsBit(ct ComponentType) bool {
	i := ct >> 6
	o := ct & 63
	return (m[i] & (uint64(1) << uint64(o))) != 0
}

// intersects reports whether the masks share any bit.
func (m bitmask256) intersects(other bitmask256) bool {
	return (m[0]&other[0] != 0) ||
		(m[1]&other[1] != 0) ||
		(m[2]&other[2] != 0) ||
		(m[3]&other[3] != 0)
}

func (m bitmask256) or(other bitmask256) bitmask256 {
	return bitmask256{m[0] | other[0], m[1] | other[1], m[2] | other[2], m[3] | other[3]}
}

func (m bitmask256) andNot(other bitmask256) bitmask256 {
	return bitmask256{m[0] &^ other[0], m[1] &^ other[1], m[2] &^ other[2], m[3] &^ other[3]}
}

func (m bitmask256) count() int {
	return bits.OnesCount64(m[0]) + bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) + bits.OnesCount64(m[3])
}

func (m bitmask256) isEmpty() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

// types expands the mask into ascending component types.
func (m bitmask256) types() []ComponentType {
	out := make([]ComponentType, 0, m.count())
	for w := range m {
		word := m[w]
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, ComponentType(w*64+b))
			word &= word - 1
		}
	}
	return out
}
