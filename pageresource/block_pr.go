package pageresource

import (
	"sync"
	"sync/atomic"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pagetable"
)

// BlockPageResource hands out same-sized blocks from a bump cursor,
// recycling released blocks through a LIFO free list instead of ever
// returning them to the OS (spec.md §4.2, grounded on
// original_source/.../block_page_resource.rs). It never needs the page
// registry for its own bookkeeping — every block is the same size —
// but still records pages there so malloc_usable_size and the
// large-object fallback can recognize a pointer as belonging to this
// space.
//
// The Rust original recycles blocks through crossbeam's lock-free
// SegQueue. No example repo in this module's lineage carries a
// lock-free MPMC queue whose API fits an unbounded single-word
// payload (hayabusa-cloud-iobuf's BoundedPool is sized for pooling
// fixed-capacity network buffers, not recycling an open-ended stream
// of freed blocks), so recycled is a mutex-guarded slice instead
// — correct and adequate, since a Pool's flush rate bounds how often
// it is touched.
type BlockPageResource struct {
	id            mk.SpaceId
	logBytes      uint
	cursor        atomic.Uintptr
	highwater     mk.Address
	mu            sync.Mutex
	recycled      []mk.Address
	reservedBytes atomic.Uintptr
	registry      *pagetable.Registry
}

// NewBlockPageResource creates a page resource handing out
// 1<<logBytes-sized blocks from id's address space.
func NewBlockPageResource(id mk.SpaceId, logBytes uint, registry *pagetable.Registry) *BlockPageResource {
	start, end := id.AddressSpace()
	r := &BlockPageResource{id: id, logBytes: logBytes, highwater: end, registry: registry}
	r.cursor.Store(uintptr(start))
	return r
}

func (r *BlockPageResource) ReservedBytes() uintptr { return r.reservedBytes.Load() }

// AcquirePages returns one block (pages must equal
// 1<<(logBytes-logPageBytes)). It tries the recycle list first, then
// falls back to bumping the cursor.
func (r *BlockPageResource) AcquirePages(logPageBytes uint, pages int) (mk.Address, bool) {
	if addr, ok := r.popRecycled(); ok {
		r.reservedBytes.Add(uintptr(1) << r.logBytes)
		return addr, true
	}
	addr, ok := r.acquireFromCursor()
	if !ok {
		return 0, false
	}
	r.reservedBytes.Add(uintptr(1) << r.logBytes)
	return addr, true
}

func (r *BlockPageResource) popRecycled() (mk.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.recycled)
	if n == 0 {
		return 0, false
	}
	addr := r.recycled[n-1]
	r.recycled = r.recycled[:n-1]
	return addr, true
}

func (r *BlockPageResource) acquireFromCursor() (mk.Address, bool) {
	size := uintptr(1) << r.logBytes
	for {
		cur := r.cursor.Load()
		if mk.Address(cur) >= r.highwater {
			return 0, false
		}
		next := cur + size
		if !r.cursor.CompareAndSwap(cur, next) {
			continue
		}
		start := mk.Address(cur)
		if err := mapPages(start, size, 12); err != nil {
			continue // lost a race for this exact block, try another
		}
		r.registry.InsertPages(start, int(size>>12))
		return start, true
	}
}

// ReleasePages returns a block to the recycle list; it is never
// unmapped, matching the original's "recycle, don't munmap" policy for
// superblocks.
func (r *BlockPageResource) ReleasePages(start mk.Address, logPageBytes uint) {
	r.mu.Lock()
	r.recycled = append(r.recycled, start)
	r.mu.Unlock()
	r.reservedBytes.Add(^(uintptr(1)<<r.logBytes - 1))
}

// GetContiguousPages returns the length, in pages, of the block
// starting at start (always 1<<(logBytes-12) for a present block).
func (r *BlockPageResource) GetContiguousPages(start mk.Address) int {
	return r.registry.GetContiguousPages(start)
}
