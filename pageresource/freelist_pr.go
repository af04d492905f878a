package pageresource

import (
	"sync"
	"sync/atomic"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pagetable"
)

// numSizeClasses is the number of buddy size classes of a page free
// list over 4 KiB units: log2(space bytes / page bytes), i.e. 29. The
// largest class is 2^28 units (2^40 bytes), half of the space.
const numSizeClasses = mk.LogMaxSpaceSize - 12

// FreelistPageResource acquires and releases pages of any size, in
// any order, by running a buddy free list over 4 KiB units. The list
// is seeded with one top-class cell at the start of the space, so it
// manages the lower 2^40 bytes of the space (spec.md §4.2, grounded on
// original_source/.../freelist_page_resource.rs). Used by spaces whose
// allocation pattern isn't a stream of same-sized blocks — the
// large-object space, and the buddy plan's small-object space.
type FreelistPageResource struct {
	id            mk.SpaceId
	mu            sync.Mutex
	freelist      *pageFreeList
	reservedBytes atomic.Uintptr
	registry      *pagetable.Registry
}

// NewFreelistPageResource creates a page resource managing all of id's
// address space, registering pages in registry (pass
// pagetable.Default unless a test wants an isolated registry).
func NewFreelistPageResource(id mk.SpaceId, registry *pagetable.Registry) *FreelistPageResource {
	base, _ := id.AddressSpace()
	fl := newPageFreeList(base, 12, numSizeClasses)
	fl.ReleaseCell(0, numSizeClasses-1)
	return &FreelistPageResource{id: id, freelist: fl, registry: registry}
}

func (r *FreelistPageResource) ReservedBytes() uintptr { return r.reservedBytes.Load() }

// AcquirePages reserves `pages` contiguous pages of logPageBytes size
// and maps them in, retrying on the rare case another process has
// already mapped that exact range (spec.md §4.2's
// "Retry acquire_pages on map_pages failure").
func (r *FreelistPageResource) AcquirePages(logPageBytes uint, pages int) (mk.Address, bool) {
	units := uintptr(pages) << (logPageBytes - 12)
	for {
		r.mu.Lock()
		unit, ok := r.freelist.AllocateCell(units)
		r.mu.Unlock()
		if !ok {
			return 0, false
		}
		start := r.freelist.unitAddr(unit)
		size := uintptr(pages) << logPageBytes
		if err := mapPages(start, size, logPageBytes); err != nil {
			continue // another mapping raced us for this range; retry
		}
		r.reservedBytes.Add(size)
		r.registry.InsertPages(start, pages)
		return start, true
	}
}

// ReleasePages releases the run of pages starting at start, looking
// its length up in the page registry.
func (r *FreelistPageResource) ReleasePages(start mk.Address, logPageBytes uint) {
	pages := r.registry.GetContiguousPages(start)
	if pages == 0 {
		panic("pageresource: release of an address that is not the start of a mapped run")
	}
	r.registry.DeletePages(start, pages)
	size := uintptr(pages) << logPageBytes
	var mem mk.RawMemory
	if err := mem.Unmap(start, size); err != nil {
		panic("pageresource: unmap failed: " + err.Error())
	}
	r.reservedBytes.Add(^(size - 1)) // atomic subtract

	base, _ := r.id.AddressSpace()
	unit := start.Diff(base) >> 12
	units := uintptr(pages) << (logPageBytes - 12)

	r.mu.Lock()
	r.freelist.Release(unit, units)
	r.mu.Unlock()
}

// GetContiguousPages returns the length, in pages, of the run starting
// at start, or 0 if start is not the start of a mapped run.
func (r *FreelistPageResource) GetContiguousPages(start mk.Address) int {
	return r.registry.GetContiguousPages(start)
}
