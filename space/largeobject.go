package space

import (
	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pagetable"
	"github.com/cznic/mallockit/pageresource"
)

// LargeObjectGetLayout recovers a previously allocated extent's Layout
// purely from the shared page registry, needing no LargeObjectSpace
// instance (every space's FreelistPageResource shares pagetable.Default,
// spec.md §4.10). The Buddy and Hoard plans' Plan.GetLayout call this
// directly for pointers outside their small-object space.
func LargeObjectGetLayout(ptr mk.Address) mk.Layout {
	pages := pagetable.Default.GetContiguousPages(ptr)
	bytes := uintptr(pages) << pageLogBytes
	return mk.NewLayout(bytes, roundupPow2(bytes))
}

// LargeObjectSpace is the universal over-threshold fallback every plan
// shares (spec.md §4.5's "large-object plan"): each allocation is
// rounded up to a whole number of 4 KiB pages and its size is
// recovered later purely from the page registry, grounded on
// original_source/.../large_object_space.rs.
type LargeObjectSpace struct {
	base
}

// NewLargeObjectSpace creates the large-object space owning id's
// address range.
func NewLargeObjectSpace(id mk.SpaceId) *LargeObjectSpace {
	return &LargeObjectSpace{base{id: id, pr: pageresource.NewFreelistPageResource(id, pagetable.Default)}}
}

const pageLogBytes = 12
const pageBytes = uintptr(1) << pageLogBytes
const pageMask = pageBytes - 1

// LargeObjectAllocator carves page-rounded extents out of a
// LargeObjectSpace. It has no internal state of its own: every
// extent's size is recoverable from the page registry, so any number
// of mutators may share one instance.
type LargeObjectAllocator struct {
	space *LargeObjectSpace
}

// NewLargeObjectAllocator wraps space for allocation.
func NewLargeObjectAllocator(space *LargeObjectSpace) *LargeObjectAllocator {
	return &LargeObjectAllocator{space: space}
}

// GetLayout recovers the Layout of a previously allocated extent
// starting at ptr via the page registry; align is reported as the
// extent's size rounded up to a power of two, matching the original's
// next_power_of_two approximation (large objects are always
// page-aligned, so this is never smaller than the real alignment).
func (a *LargeObjectAllocator) GetLayout(ptr mk.Address) mk.Layout {
	return LargeObjectGetLayout(ptr)
}

// Alloc rounds layout.Size up to a whole number of pages and acquires
// that many from the space; the result is always page-aligned, which
// satisfies any alignment up to 4 KiB for free.
func (a *LargeObjectAllocator) Alloc(layout mk.Layout) (mk.Address, bool) {
	pages := int((layout.Size + pageMask) >> pageLogBytes)
	if pages == 0 {
		pages = 1
	}
	return a.space.PageResource().AcquirePages(pageLogBytes, pages)
}

// AllocZeroed allocates and zero-fills layout.Size bytes. Freshly
// mapped anonymous pages are already zero, but a large object can be a
// multiple of 4 KiB larger than layout.Size only when it is being
// reused — which never happens here since this space never recycles
// pages without unmapping them first — so no explicit zeroing is
// required; it is still performed for pages requested smaller than the
// rounded-up extent, in case a future page-recycling policy changes
// that invariant.
func (a *LargeObjectAllocator) AllocZeroed(layout mk.Layout) (mk.Address, bool) {
	ptr, ok := a.Alloc(layout)
	if ok {
		zeroBytes(ptr, layout.Size)
	}
	return ptr, ok
}

// Dealloc releases the extent starting at ptr back to the space.
func (a *LargeObjectAllocator) Dealloc(ptr mk.Address) {
	a.space.PageResource().ReleasePages(ptr, pageLogBytes)
}

func roundupPow2(n uintptr) uintptr {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
