// Package container holds the low-level index structures the engine is built
// on: a pooled dense array with free-slot reuse, the sorted free-list that
// backs it, and a bidirectional index map.
package container

import "slices"

// FreeList is an ascending set of reclaimed slot indices. The lowest entry is
// the preferred reuse candidate; the highest entry is checked when a pool
// trims its tail.
type FreeList struct {
	idx []int
}

// Len returns the number of free slots.
func (f *FreeList) Len() int {
	return len(f.idx)
}

// Contains reports whether i is recorded as free.
func (f *FreeList) Contains(i int) bool {
	_, ok := slices.BinarySearch(f.idx, i)
	return ok
}

// Insert records i as free. Inserting an index twice is a no-op.
func (f *FreeList) Insert(i int) {
	pos, ok := slices.BinarySearch(f.idx, i)
	if ok {
		return
	}
	f.idx = slices.Insert(f.idx, pos, i)
}

// InsertRange records [start, start+n) as free.
func (f *FreeList) InsertRange(start, n int) {
	if n <= 0 {
		return
	}
	pos, _ := slices.BinarySearch(f.idx, start)
	// fast path: range lands after every recorded entry
	if pos == len(f.idx) {
		for i := start; i < start+n; i++ {
			f.idx = append(f.idx, i)
		}
		return
	}
	for i := start; i < start+n; i++ {
		f.Insert(i)
	}
}

// Remove drops i from the set and reports whether it was present.
func (f *FreeList) Remove(i int) bool {
	pos, ok := slices.BinarySearch(f.idx, i)
	if !ok {
		return false
	}
	f.idx = slices.Delete(f.idx, pos, pos+1)
	return true
}

// RemoveFrom drops every entry >= i.
func (f *FreeList) RemoveFrom(i int) {
	pos, _ := slices.BinarySearch(f.idx, i)
	f.idx = f.idx[:pos]
}

// PopMin removes and returns the lowest free index.
func (f *FreeList) PopMin() (int, bool) {
	if len(f.idx) == 0 {
		return 0, false
	}
	i := f.idx[0]
	f.idx = slices.Delete(f.idx, 0, 1)
	return i, true
}

// Max returns the highest free index.
func (f *FreeList) Max() (int, bool) {
	if len(f.idx) == 0 {
		return 0, false
	}
	return f.idx[len(f.idx)-1], true
}

// PopMax removes and returns the highest free index.
func (f *FreeList) PopMax() (int, bool) {
	if len(f.idx) == 0 {
		return 0, false
	}
	last := len(f.idx) - 1
	i := f.idx[last]
	f.idx = f.idx[:last]
	return i, true
}

// Clear empties the set, keeping its storage.
func (f *FreeList) Clear() {
	f.idx = f.idx[:0]
}
