package kouzou

import "slices"

// Signature is an immutable, order-irrelevant set of component types. Two
// signatures with the same members are equal and resolve to the same
// archetype.
type Signature struct {
	ids  []ComponentType // ascending
	mask bitmask256
}

// NewSignature builds a signature from types in any order. Duplicates are
// collapsed.
func NewSignature(types ...ComponentType) Signature {
	var m bitmask256
	for _, ct := range types {
		m.set(ct)
	}
	return signatureFromMask(m)
}

func signatureFromMask(m bitmask256) Signature {
	return Signature{ids: m.types(), mask: m}
}

// Len returns the number of member types.
func (s Signature) Len() int {
	return len(s.ids)
}

// IsEmpty reports whether the signature has no members.
func (s Signature) IsEmpty() bool {
	return s.mask.isEmpty()
}

// Types returns a copy of the members in ascending order.
func (s Signature) Types() []ComponentType {
	return slices.Clone(s.ids)
}

// Contains reports whether ct is a member.
func (s Signature) Contains(ct ComponentType) bool {
	return s.mask.containsBit(ct)
}

// ContainsAll reports whether every member of other is also a member of s.
func (s Signature) ContainsAll(other Signature) bool {
	return s.mask.contains(other.mask)
}

// Equal is set equality.
func (s Signature) Equal(other Signature) bool {
	return s.mask == other.mask
}

// Merge returns the union of s and other.
func (s Signature) Merge(other Signature) Signature {
	return signatureFromMask(s.mask.or(other.mask))
}

// With returns s plus the given types.
func (s Signature) With(types ...ComponentType) Signature {
	m := s.mask
	for _, ct := range types {
		m.set(ct)
	}
	return signatureFromMask(m)
}

// Remove returns s without the given types.
func (s Signature) Remove(types ...ComponentType) Signature {
	m := s.mask
	for _, ct := range types {
		m.unset(ct)
	}
	return signatureFromMask(m)
}

// Without returns s minus every member of other.
func (s Signature) Without(other Signature) Signature {
	return signatureFromMask(s.mask.andNot(other.mask))
}
