package mallockit

import (
	"errors"
	"sync"
)

// ErrOutOfMemory is returned (and, at the malloc ABI boundary, mapped
// to errno=ENOMEM) when a page resource cannot satisfy a request,
// spec.md §7 "Out of memory".
var ErrOutOfMemory = errors.New("mallockit: out of memory")

// ErrInvalidAlignment is returned when an alignment argument is zero,
// not a power of two, or smaller than sizeof(uintptr), spec.md §7
// "Invalid alignment".
var ErrInvalidAlignment = errors.New("mallockit: invalid alignment")

// ErrSizeNotAligned is returned by aligned_alloc-style entry points
// when size is not a multiple of the requested alignment, spec.md §7
// "Size-not-aligned".
var ErrSizeNotAligned = errors.New("mallockit: size not a multiple of alignment")

const (
	// reservationLogBytes is 2^46, the over-reservation spec.md §3
	// asks for so the aligned 2^45-byte heap can be trimmed out of it.
	reservationLogBytes = 46
	// HeapLogBytes is 2^45, the size (and alignment) of the heap.
	HeapLogBytes = 45
)

// heapState is the process-wide singleton backing Heap. It is created
// lazily, on first use, by a sync.Once the way the Rust original's
// Lazy<Heap> static does.
type heapState struct {
	start Address
	end   Address
}

var (
	heapOnce  sync.Once
	heapValue heapState
	heapErr   error
)

// Heap returns the process-wide heap reservation, reserving it on
// first call. The reservation spans [start, start+2^45) and is never
// released (spec.md §4.1): "The reservation is never released."
func Heap() (start, end Address, err error) {
	heapOnce.Do(func() {
		heapValue, heapErr = reserveHeap()
	})
	return heapValue.start, heapValue.end, heapErr
}

// reserveHeap over-reserves 2^46 bytes of anonymous address space, then
// trims the unaligned prefix and suffix so the retained middle 2^45
// bytes are naturally aligned, exactly as spec.md §4.1 describes.
func reserveHeap() (heapState, error) {
	var mem RawMemory
	bigSize := uintptr(1) << reservationLogBytes
	base, err := mem.ReserveAnywhere(bigSize)
	if err != nil {
		return heapState{}, err
	}
	aligned := base.AlignUp(uintptr(1) << HeapLogBytes)
	prefix := aligned.Diff(base)
	size := uintptr(1) << HeapLogBytes
	suffix := bigSize - prefix - size

	if prefix > 0 {
		if err := mem.ReleaseReservation(base, prefix); err != nil {
			return heapState{}, err
		}
	}
	if suffix > 0 {
		if err := mem.ReleaseReservation(aligned.Add(size), suffix); err != nil {
			return heapState{}, err
		}
	}
	return heapState{start: aligned, end: aligned.Add(size)}, nil
}

// ContainsAddress reports whether addr lies within the heap
// reservation. It makes the same bounds check as malloc.API.IsInHeap,
// which the malloc ABI shims call.
func ContainsAddress(addr Address) bool {
	start, end, err := Heap()
	if err != nil {
		return false
	}
	return addr >= start && addr < end
}
