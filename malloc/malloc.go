// Package malloc implements the plan-agnostic malloc ABI shim layer,
// spec.md §4.6: the glue between the C calling convention and a Plan's
// Mutator. Grounded on
// original_source/mallockit/src/util/malloc/malloc_api.rs (the
// MallocAPI<P: Plan> generic) and its mallockit/src/malloc.rs
// sibling.
package malloc

import (
	"unsafe"

	mk "github.com/cznic/mallockit"
	"golang.org/x/sys/unix"
)

// MinAlignment is the smallest alignment every allocation satisfies
// regardless of the requested size, matching glibc's malloc guarantee.
const MinAlignment = 16

// PageSize is the granularity valloc/pvalloc align to.
const PageSize = 4096

// API is a Plan's malloc ABI shim, parameterized over two closures
// rather than a generic type bound to a concrete Plan/Mutator pair: Go
// interfaces carry no associated-type story matching the original's
// MallocAPI<P: Plan>, so the plan/mutator lookup is supplied directly
// instead. Every cmd/<plan> binary builds exactly one API value.
type API struct {
	// Mutator returns the calling thread's mutator (normally a
	// tls.Slot[M].Current call).
	Mutator func() mk.Mutator
	// GetLayout recovers a previously allocated pointer's Layout
	// (normally the plan singleton's GetLayout method).
	GetLayout func(ptr mk.Address) mk.Layout
}

func alignUp(value, align uintptr) uintptr {
	mask := align - 1
	return (value + mask) &^ mask
}

// MallocSize returns the usable size of a previously allocated
// pointer, the malloc_usable_size shim.
func (a API) MallocSize(ptr mk.Address) uintptr {
	return a.GetLayout(ptr).Size
}

// IsInHeap reports whether ptr falls inside this process's heap
// reservation. On macOS, any malloc-family entry point must tolerate
// addresses the system allocator (not this framework) handed out
// before the library was loaded, delegating to the system zone
// instead of touching the plan; this is how a caller tells the two
// apart. On Linux every live pointer is always ours, so callers of
// this shim layer only need it on the macOS path.
func (a API) IsInHeap(ptr mk.Address) bool {
	start, end, err := mk.Heap()
	if err != nil {
		return false
	}
	return ptr >= start && ptr < end
}

// Alloc allocates size bytes aligned to align, returning (0, errno) on
// failure.
func (a API) Alloc(size, align uintptr) (mk.Address, int) {
	if size < MinAlignment {
		size = MinAlignment
	}
	size = alignUp(size, align)
	layout := mk.NewLayout(size, align)
	ptr, ok := a.Mutator().Alloc(layout)
	if !ok {
		return 0, int(unix.ENOMEM)
	}
	return ptr, 0
}

// Calloc allocates count*size zeroed bytes, detecting multiplication
// overflow the way glibc's calloc does.
func (a API) Calloc(count, size uintptr) (mk.Address, int) {
	total := count * size
	if count != 0 && total/count != size {
		return 0, int(unix.ENOMEM)
	}
	if total < MinAlignment {
		total = MinAlignment
	}
	ptr, ok := a.Mutator().AllocZeroed(mk.NewLayout(total, MinAlignment))
	if !ok {
		return 0, int(unix.ENOMEM)
	}
	return ptr, 0
}

// Free releases ptr; a null pointer is a no-op.
func (a API) Free(ptr mk.Address) {
	if ptr.IsZero() {
		return
	}
	a.Mutator().Dealloc(ptr)
}

// Realloc implements Linux realloc semantics: a null ptr behaves like
// alloc, and a zero newSize frees ptr and returns null.
func (a API) Realloc(ptr mk.Address, newSize uintptr) (mk.Address, int) {
	if ptr.IsZero() {
		return a.Alloc(newSize, MinAlignment)
	}
	if newSize == 0 {
		a.Free(ptr)
		return 0, 0
	}
	newSize = alignUp(newSize, MinAlignment)
	newPtr, ok := a.Mutator().Realloc(ptr, mk.NewLayout(newSize, MinAlignment))
	if !ok {
		return 0, int(unix.ENOMEM)
	}
	return newPtr, 0
}

// sizeofUsize is sizeof(usize) in the original C ABI: the floor
// posix_memalign's alignment argument must clear, below which the
// call is rejected outright rather than rounded up.
const sizeofUsize = unsafe.Sizeof(uintptr(0))

// PosixMemalign allocates size bytes aligned to alignment, the
// posix_memalign shim: alignment must be a power of two no smaller
// than sizeof(usize) (8 on a 64-bit target), returning EINVAL
// otherwise; an alignment between sizeof(usize) and MinAlignment is
// rounded up to MinAlignment rather than rejected.
func (a API) PosixMemalign(alignment, size uintptr) (mk.Address, int) {
	if alignment == 0 || alignment&(alignment-1) != 0 || alignment < sizeofUsize {
		return 0, int(unix.EINVAL)
	}
	if alignment < MinAlignment {
		alignment = MinAlignment
	}
	return a.Alloc(size, alignment)
}

// Memalign is posix_memalign's older, errno-setting-only sibling.
func (a API) Memalign(alignment, size uintptr) (mk.Address, int) {
	return a.PosixMemalign(alignment, size)
}

// AlignedAlloc implements aligned_alloc: alignment must be a power of
// two and size a multiple of alignment.
func (a API) AlignedAlloc(alignment, size uintptr) (mk.Address, int) {
	if alignment == 0 || alignment&(alignment-1) != 0 || size&(alignment-1) != 0 {
		return 0, int(unix.EINVAL)
	}
	return a.Memalign(alignment, size)
}

// Valloc allocates size bytes aligned to the page size.
func (a API) Valloc(size uintptr) (mk.Address, int) {
	return a.Alloc(size, PageSize)
}

// Pvalloc allocates size rounded up to a whole number of pages,
// page-aligned.
func (a API) Pvalloc(size uintptr) (mk.Address, int) {
	return a.Alloc(alignUp(size, PageSize), PageSize)
}
