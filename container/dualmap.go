package container

import "math"

// Null is returned by DualIndexMap lookups that find nothing.
const Null = math.MaxUint32

// DualIndexMap is a one-to-one mapping between two dense uint32 domains.
// Both directions are plain slices padded with Null, grown on demand.
type DualIndexMap struct {
	toVal []uint32
	toKey []uint32
	count int
}

// NewDualIndexMap creates a map with room for capacity keys and values.
func NewDualIndexMap(capacity int) *DualIndexMap {
	m := &DualIndexMap{}
	m.toVal = growNull(m.toVal, capacity)
	m.toKey = growNull(m.toKey, capacity)
	return m
}

// Len returns the number of linked pairs.
func (m *DualIndexMap) Len() int {
	return m.count
}

// Set links k and v. Any pair already using k or v is unlinked first.
func (m *DualIndexMap) Set(k, v uint32) {
	if k == Null || v == Null {
		return
	}
	if old := m.GetVal(k); old != Null {
		if old == v {
			return
		}
		m.toKey[old] = Null
		m.toVal[k] = Null
		m.count--
	}
	if old := m.GetKey(v); old != Null {
		m.toVal[old] = Null
		m.toKey[v] = Null
		m.count--
	}
	if int(k) >= len(m.toVal) {
		m.toVal = growNull(m.toVal, int(k)+1)
	}
	if int(v) >= len(m.toKey) {
		m.toKey = growNull(m.toKey, int(v)+1)
	}
	m.toVal[k] = v
	m.toKey[v] = k
	m.count++
}

// GetVal returns the value linked to k, or Null.
func (m *DualIndexMap) GetVal(k uint32) uint32 {
	if int(k) >= len(m.toVal) {
		return Null
	}
	return m.toVal[k]
}

// GetKey returns the key linked to v, or Null.
func (m *DualIndexMap) GetKey(v uint32) uint32 {
	if int(v) >= len(m.toKey) {
		return Null
	}
	return m.toKey[v]
}

// HasKey reports whether k is linked.
func (m *DualIndexMap) HasKey(k uint32) bool {
	return m.GetVal(k) != Null
}

// Remove unlinks the pair (k, v) only if they are linked to each other.
func (m *DualIndexMap) Remove(k, v uint32) bool {
	if m.GetVal(k) != v || v == Null {
		return false
	}
	m.toVal[k] = Null
	m.toKey[v] = Null
	m.count--
	return true
}

// RemoveByKey unlinks k and returns the value it was linked to, or Null.
func (m *DualIndexMap) RemoveByKey(k uint32) uint32 {
	v := m.GetVal(k)
	if v == Null {
		return Null
	}
	m.toVal[k] = Null
	m.toKey[v] = Null
	m.count--
	return v
}

// RemoveByVal unlinks v and returns the key it was linked to, or Null.
func (m *DualIndexMap) RemoveByVal(v uint32) uint32 {
	k := m.GetKey(v)
	if k == Null {
		return Null
	}
	m.toVal[k] = Null
	m.toKey[v] = Null
	m.count--
	return k
}

// Clear unlinks everything, keeping storage.
func (m *DualIndexMap) Clear() {
	for i := range m.toVal {
		m.toVal[i] = Null
	}
	for i := range m.toKey {
		m.toKey[i] = Null
	}
	m.count = 0
}

// growNull extends s to at least n entries (doubling), filling with Null.
func growNull(s []uint32, n int) []uint32 {
	if n <= len(s) {
		return s
	}
	newLen := max(len(s)*2, n)
	ns := make([]uint32, newLen)
	copy(ns, s)
	for i := len(s); i < newLen; i++ {
		ns[i] = Null
	}
	return ns
}
