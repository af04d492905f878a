// Package tlab implements the Hoard plan's per-mutator thread-local
// allocation buffer: a LIFO free-cell stack per size class, whose total
// byte count (FreeBytes) the owning mutator checks against its cap,
// grounded on
// original_source/mallockit/src/util/discrete_tlab.rs.
package tlab

import (
	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
)

// DiscreteTLAB is a per-mutator cache of free cells, one LIFO stack
// per size class, threaded through the cells themselves (the same
// "store the next pointer in the freed cell" trick freelist.Aligned
// uses). A mutator drains its TLAB before ever touching the shared
// pool (spec.md §4.9's "quick cache" for objects below
// LARGEST_SMALL_OBJECT).
type DiscreteTLAB struct {
	bins      []mk.Address
	freeBytes uintptr
}

// New creates an empty TLAB with bins for every class up to and
// including maxClass.
func New(maxClass sizeclass.Class) *DiscreteTLAB {
	return &DiscreteTLAB{bins: make([]mk.Address, maxClass+1)}
}

// FreeBytes returns the total size of every cell currently cached.
func (t *DiscreteTLAB) FreeBytes() uintptr { return t.freeBytes }

// Push adds cell (of the given size class) to the TLAB.
func (t *DiscreteTLAB) Push(class sizeclass.Class, cell mk.Address) {
	mk.StoreAddress(cell, t.bins[class])
	t.bins[class] = cell
	t.freeBytes += class.Bytes()
}

// Pop removes and returns a cell of the given size class, if any is
// cached.
func (t *DiscreteTLAB) Pop(class sizeclass.Class) (mk.Address, bool) {
	cell := t.bins[class]
	if cell.IsZero() {
		return 0, false
	}
	t.bins[class] = mk.LoadAddress(cell)
	t.freeBytes -= class.Bytes()
	return cell, true
}

// Clear empties every bin, calling release for each evicted cell (used
// when a mutator exits and must return its cached cells to the shared
// pool rather than leak them).
func (t *DiscreteTLAB) Clear(release func(class sizeclass.Class, cell mk.Address)) {
	for i, head := range t.bins {
		class := sizeclass.Class(i)
		cell := head
		for !cell.IsZero() {
			next := mk.LoadAddress(cell)
			release(class, cell)
			cell = next
		}
		t.bins[i] = 0
	}
	t.freeBytes = 0
}
