package pageresource

import mk "github.com/cznic/mallockit"

// cell is a free-list node for a run of page-granularity units. Unlike
// freelist.Aligned, a pageFreeList's cells describe address ranges
// that are not yet backed by real memory (they are still PROT_NONE
// reservation), so the prev/next links cannot be threaded through the
// cells themselves the way freelist.Aligned does — writing to
// unmapped memory would fault. Instead each cell is a small node
// allocated out-of-band through mk.MetaAlloc, exactly the role the
// Rust original's Box::new_in(Cell, System) plays in
// util/freelist/page_freelist.rs.
type cell struct {
	prev, next *cell
	unit       uintptr
	class      int
}

func newCell(unit uintptr, class int) *cell {
	addr := mk.MetaAlloc(32, 8)
	c := (*cell)(addrToPtr(addr))
	*c = cell{unit: unit, class: class}
	return c
}

// pageFreeList is a buddy free list over 0..2^numClasses-1 units of
// logUnitBytes bytes each (logUnitBytes is 12 for ordinary 4 KiB
// pages). It tracks free cells with out-of-band nodes, and a
// side map from unit index to its cell so release/remove can find a
// cell in O(1) without walking the free list for it, the Go rendition
// of PageFreeList's "pointer_meta" page-table slot.
type pageFreeList struct {
	base         mk.Address
	logUnitBytes uint
	numClasses   int
	heads        []*cell
	byUnit       map[uintptr]*cell
	FreeUnits    uintptr
	TotalUnits   uintptr
}

func newPageFreeList(base mk.Address, logUnitBytes uint, numClasses int) *pageFreeList {
	return &pageFreeList{
		base:         base,
		logUnitBytes: logUnitBytes,
		numClasses:   numClasses,
		heads:        make([]*cell, numClasses),
		byUnit:       make(map[uintptr]*cell),
	}
}

func (f *pageFreeList) unitAddr(unit uintptr) mk.Address {
	return f.base.Add(unit << f.logUnitBytes)
}

func (f *pageFreeList) pushCell(unit uintptr, class int) {
	c := newCell(unit, class)
	head := f.heads[class]
	c.next = head
	if head != nil {
		head.prev = c
	}
	f.heads[class] = c
	f.byUnit[unit] = c
	f.FreeUnits += uintptr(1) << uint(class)
}

func (f *pageFreeList) popCell(class int) (uintptr, bool) {
	head := f.heads[class]
	if head == nil {
		return 0, false
	}
	f.heads[class] = head.next
	if head.next != nil {
		head.next.prev = nil
	}
	delete(f.byUnit, head.unit)
	f.FreeUnits -= uintptr(1) << uint(class)
	return head.unit, true
}

func (f *pageFreeList) removeCell(unit uintptr, class int) {
	c, ok := f.byUnit[unit]
	if !ok {
		return
	}
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		f.heads[class] = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	delete(f.byUnit, unit)
	f.FreeUnits -= uintptr(1) << uint(class)
}

func (f *pageFreeList) isFree(unit uintptr, class int) bool {
	c, ok := f.byUnit[unit]
	return ok && c.class == class
}

func (f *pageFreeList) buddy(unit uintptr, class int) uintptr {
	return unit ^ (uintptr(1) << uint(class))
}

// ReleaseCell seeds the free list with a class-sized run at unit
// without attempting to coalesce, used once to hand the whole space to
// the free list as a single top-class cell.
func (f *pageFreeList) ReleaseCell(unit uintptr, class int) {
	f.pushCell(unit, class)
	f.TotalUnits += uintptr(1) << uint(class)
}

// AllocateCell returns a run of at least units units, splitting a
// larger free run as needed.
func (f *pageFreeList) AllocateCell(units uintptr) (uintptr, bool) {
	return f.allocateClass(log2Ceil(units))
}

func (f *pageFreeList) allocateClass(class int) (uintptr, bool) {
	if class >= f.numClasses {
		return 0, false
	}
	if unit, ok := f.popCell(class); ok {
		return unit, true
	}
	parent, ok := f.allocateClass(class + 1)
	if !ok {
		return 0, false
	}
	sibling := f.buddy(parent, class)
	f.pushCell(sibling, class)
	return parent, true
}

// Release returns a units-sized run starting at unit, coalescing with
// its buddy whenever the buddy is also free.
func (f *pageFreeList) Release(unit uintptr, units uintptr) {
	f.releaseClass(unit, log2Ceil(units))
}

func (f *pageFreeList) releaseClass(unit uintptr, class int) {
	if class+1 < f.numClasses {
		sibling := f.buddy(unit, class)
		if f.isFree(sibling, class) {
			f.removeCell(sibling, class)
			parent := unit
			if sibling < unit {
				parent = sibling
			}
			f.releaseClass(parent, class+1)
			return
		}
	}
	f.pushCell(unit, class)
}

func log2Ceil(n uintptr) int {
	if n <= 1 {
		return 0
	}
	c := 0
	v := uintptr(1)
	for v < n {
		v <<= 1
		c++
	}
	return c
}
