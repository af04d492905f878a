package space

import (
	"sync"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/freelist"
	"github.com/cznic/mallockit/pagetable"
	"github.com/cznic/mallockit/pageresource"
)

// freeListUnitBytes and freeListNumClasses follow
// original_source/.../freelist_space.rs's AddressSpaceConfig for the
// buddy/bitmap back-end: 8-byte minimum alignment (LOG_MIN_ALIGNMENT =
// 3), cells up to 2 MiB (LOG_MAX_CELL_SIZE = Size2M::LOG_BYTES).
const (
	freeListUnitBytes   = 8
	freeListTopClass    = 21 - 3 // log2(2MiB/8)
	freeListNumClasses  = freeListTopClass + 1
	freeListHeaderBytes = 8 // (u32 size, u32 align), same layout as the bump header
)

// FreeListSpace backs the buddy plan's small-object allocations
// (spec.md §4.8): it draws whole 2 MiB page runs from its page
// resource and hands them to an aligned buddy free list, the Go
// rendition of original_source/.../freelist_space.rs's "BitMapFreeList"
// back-end (the default; the intrusive/header back-end is provided by
// freelist.Intrusive for callers that want it, but no plan in this
// module wires it in — the Open Question in spec.md §8 about which
// back-end to default to is resolved in favor of the buddy/bitmap
// variant, matching the source's own default).
type FreeListSpace struct {
	base
}

// MaxAllocationSize is the largest single allocation FreeListSpace can
// satisfy: a whole 2 MiB cell, minus the header.
const MaxAllocationSize = size2MBytes - freeListHeaderBytes

// NewFreeListSpace creates a free-list space owning id's address
// range.
func NewFreeListSpace(id mk.SpaceId) *FreeListSpace {
	return &FreeListSpace{base{id: id, pr: pageresource.NewFreelistPageResource(id, pagetable.Default)}}
}

// FreeListAllocator carves variable-sized cells out of a
// FreeListSpace's buddy free list, growing the backing free list by a
// fresh 2 MiB page run whenever it cannot satisfy a request.
type FreeListAllocator struct {
	mu    sync.Mutex
	space *FreeListSpace
	fl    *freelist.Aligned
}

// NewFreeListAllocator wraps space's page range in a buddy free list.
// Every mutator sharing the same FreeListSpace may use its own
// FreeListAllocator instance; the lock inside guards that instance's
// own free list, matching spec.md §5's "one lock per space"
// (here, per allocator instance over the space, since in this module
// the buddy plan gives each mutator its own FreeListAllocator talking
// to one shared space).
func NewFreeListAllocator(space *FreeListSpace) *FreeListAllocator {
	base, _ := space.Id().AddressSpace()
	return &FreeListAllocator{space: space, fl: freelist.NewAligned(base, freeListUnitBytes, freeListNumClasses)}
}

func (a *FreeListAllocator) GetLayout(ptr mk.Address) mk.Layout {
	return FreeListGetLayout(ptr)
}

// FreeListGetLayout recovers ptr's Layout from its (u32 size, u32
// align) header, the same self-describing shape the bump plan uses.
// The Buddy plan's Plan.GetLayout calls this directly.
func FreeListGetLayout(ptr mk.Address) mk.Layout {
	size := mk.Load32(ptr.Sub(freeListHeaderBytes))
	align := mk.Load32(ptr.Sub(freeListHeaderBytes / 2))
	return mk.NewLayout(uintptr(size), uintptr(align))
}

// Alloc reserves a cell large enough for a freeListHeaderBytes header
// plus layout.Size bytes, at an address whose alignment satisfies
// layout.Align. Because a buddy cell of class k is always aligned to
// 2^k*unitBytes, padding the header out to a multiple of layout.Align
// guarantees the returned pointer inherits that alignment too.
func (a *FreeListAllocator) Alloc(layout mk.Layout) (mk.Address, bool) {
	padding := alignUp(freeListHeaderBytes, layout.Align)
	total := padding + layout.Size
	units := (total + freeListUnitBytes - 1) / freeListUnitBytes
	classUnits := log2CeilUnits(units)
	for (uintptr(1)<<uint(classUnits))*freeListUnitBytes < layout.Align {
		classUnits++
	}

	a.mu.Lock()
	cellStart, ok := a.fl.AllocateCell(uintptr(1) << uint(classUnits))
	a.mu.Unlock()
	if !ok {
		if !a.refill() {
			return 0, false
		}
		a.mu.Lock()
		cellStart, ok = a.fl.AllocateCell(uintptr(1) << uint(classUnits))
		a.mu.Unlock()
		if !ok {
			return 0, false
		}
	}

	ptr := cellStart.Add(padding)
	mk.Store32(ptr.Sub(freeListHeaderBytes), uint32(layout.Size))
	mk.Store32(ptr.Sub(freeListHeaderBytes/2), uint32(layout.Align))
	return ptr, true
}

func (a *FreeListAllocator) refill() bool {
	start, ok := a.space.PageResource().AcquirePages(size2MLogLog, 1)
	if !ok {
		return false
	}
	a.mu.Lock()
	a.fl.ReleaseCell(start, freeListTopClass)
	a.mu.Unlock()
	return true
}

// AllocZeroed allocates and zero-fills layout.Size bytes.
func (a *FreeListAllocator) AllocZeroed(layout mk.Layout) (mk.Address, bool) {
	ptr, ok := a.Alloc(layout)
	if ok {
		zeroBytes(ptr, layout.Size)
	}
	return ptr, ok
}

// Dealloc returns ptr's cell to the free list, coalescing with its
// buddy where possible.
func (a *FreeListAllocator) Dealloc(ptr mk.Address) {
	size := mk.Load32(ptr.Sub(freeListHeaderBytes))
	align := mk.Load32(ptr.Sub(freeListHeaderBytes / 2))
	padding := alignUp(freeListHeaderBytes, uintptr(align))
	cellStart := ptr.Sub(padding)
	total := padding + uintptr(size)
	units := (total + freeListUnitBytes - 1) / freeListUnitBytes

	a.mu.Lock()
	defer a.mu.Unlock()
	a.fl.Release(cellStart, uintptr(1)<<uint(log2CeilUnits(units)))
}

func alignUp(n, align uintptr) uintptr {
	mask := align - 1
	return (n + mask) &^ mask
}

func log2CeilUnits(n uintptr) int {
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
