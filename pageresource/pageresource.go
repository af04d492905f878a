// Package pageresource implements the two ways a Space acquires and
// releases whole pages from the heap, spec.md §4.2 "Page resources":
// a buddy free list over page-granularity units for spaces that need
// pages back in any order (FreelistPageResource), and a bump cursor
// plus a recycled-block queue for spaces that only ever deal in
// fixed-size blocks (BlockPageResource).
package pageresource

import (
	mk "github.com/cznic/mallockit"
)

// PageResource is the common surface both page-granularity allocation
// strategies implement, spec.md §4.2's PageResource trait.
type PageResource interface {
	ReservedBytes() uintptr
	AcquirePages(logPageBytes uint, pages int) (mk.Address, bool)
	ReleasePages(start mk.Address, logPageBytes uint)
	GetContiguousPages(start mk.Address) int
}

func mapPages(start mk.Address, size uintptr, logPageBytes uint) error {
	var mem mk.RawMemory
	if err := mem.Map(start, size); err != nil {
		return err
	}
	if size >= 2<<20 {
		mem.AdviseHugePage(start, size)
	}
	return nil
}
