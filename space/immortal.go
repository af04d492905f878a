package space

import (
	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pagetable"
	"github.com/cznic/mallockit/pageresource"
)

// ImmortalSpace never reclaims anything it hands out; it exists purely
// to back the bump plan (spec.md §4.7), grounded on
// original_source/.../immortal_space.rs.
type ImmortalSpace struct {
	base
}

// NewImmortalSpace creates an immortal space owning id's address range.
func NewImmortalSpace(id mk.SpaceId) *ImmortalSpace {
	return &ImmortalSpace{base{id: id, pr: pageresource.NewFreelistPageResource(id, pagetable.Default)}}
}

const (
	size2MBytes     = uintptr(1) << 21
	size2MLogLog    = 21
	bumpHeaderBytes = 8 // (u32 size, u32 align)
)

// BumpAllocator is a single (top, limit) cursor. Each mutator owns its
// own instance (spec.md §4.7's per-thread BumpAllocator), so no
// internal locking is needed; only the underlying ImmortalSpace's page
// resource, shared across mutators, serializes concurrent refills.
type BumpAllocator struct {
	space *ImmortalSpace
	top   mk.Address
	limit mk.Address
}

// NewBumpAllocator creates a bump allocator drawing fresh 2 MiB page
// runs from space as needed.
func NewBumpAllocator(space *ImmortalSpace) *BumpAllocator {
	return &BumpAllocator{space: space}
}

func (a *BumpAllocator) GetLayout(ptr mk.Address) mk.Layout {
	return BumpGetLayout(ptr)
}

// BumpGetLayout recovers ptr's Layout from its (u32 size, u32 align)
// header. It needs no BumpAllocator instance — the header is
// self-describing — so the Bump plan's Plan.GetLayout calls this
// directly instead of constructing one.
func BumpGetLayout(ptr mk.Address) mk.Layout {
	size := mk.Load32(ptr.Sub(bumpHeaderBytes))
	align := mk.Load32(ptr.Sub(bumpHeaderBytes / 2))
	return mk.NewLayout(uintptr(size), uintptr(align))
}

// Alloc bumps top by layout's size (plus header and alignment
// padding), requesting a fresh 2 MiB-or-bigger page run from the space
// when the current allocation area is exhausted.
func (a *BumpAllocator) Alloc(layout mk.Layout) (mk.Address, bool) {
	if ptr, ok := a.tryAlloc(layout); ok {
		return ptr, true
	}
	if !a.refill(layout) {
		return 0, false
	}
	return a.tryAlloc(layout)
}

func (a *BumpAllocator) tryAlloc(layout mk.Layout) (mk.Address, bool) {
	cursor := a.top.Add(bumpHeaderBytes).AlignUp(layout.Align)
	end := cursor.Add(layout.Size)
	if end > a.limit {
		return 0, false
	}
	mk.Store32(cursor.Sub(bumpHeaderBytes), uint32(layout.Size))
	mk.Store32(cursor.Sub(bumpHeaderBytes/2), uint32(layout.Align))
	a.top = end
	return cursor, true
}

func (a *BumpAllocator) refill(layout mk.Layout) bool {
	need := layout.Size + bumpHeaderBytes
	if need < size2MBytes {
		need = size2MBytes
	}
	need = mk.NewLayout(need, size2MBytes).PadToAlign().Size
	pages := int(need >> size2MLogLog)
	start, ok := a.space.PageResource().AcquirePages(size2MLogLog, pages)
	if !ok {
		return false
	}
	a.top = start
	a.limit = start.Add(uintptr(pages) << size2MLogLog)
	return true
}

// AllocZeroed allocates and zero-fills layout.Size bytes.
func (a *BumpAllocator) AllocZeroed(layout mk.Layout) (mk.Address, bool) {
	ptr, ok := a.Alloc(layout)
	if ok {
		zeroBytes(ptr, layout.Size)
	}
	return ptr, ok
}

// Dealloc is a no-op: the immortal space never reclaims memory.
func (a *BumpAllocator) Dealloc(mk.Address) {}
