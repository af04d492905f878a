//go:build linux

package main

import "C"

import (
	"unsafe"

	"github.com/cznic/mallockit/malloc"
)

// malloc(0) returns null on Linux (spec.md §8's documented boundary
// behaviour), unlike the macOS variant which hands back a valid
// minimal allocation.
//
//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	ptr, errno := api.Alloc(uintptr(size), malloc.MinAlignment)
	setErrno(errno)
	return toPointer(ptr)
}

//export free
func free(ptr unsafe.Pointer) {
	api.Free(fromPointer(ptr))
}

//export cfree
func cfree(ptr unsafe.Pointer) {
	api.Free(fromPointer(ptr))
}

//export realloc
func realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	newPtr, errno := api.Realloc(fromPointer(ptr), uintptr(size))
	setErrno(errno)
	return toPointer(newPtr)
}

//export memalign
func memalign(alignment, size C.size_t) unsafe.Pointer {
	ptr, errno := api.Memalign(uintptr(alignment), uintptr(size))
	setErrno(errno)
	return toPointer(ptr)
}

//export aligned_alloc
func aligned_alloc(alignment, size C.size_t) unsafe.Pointer {
	ptr, errno := api.AlignedAlloc(uintptr(alignment), uintptr(size))
	setErrno(errno)
	return toPointer(ptr)
}

//export pvalloc
func pvalloc(size C.size_t) unsafe.Pointer {
	ptr, errno := api.Pvalloc(uintptr(size))
	setErrno(errno)
	return toPointer(ptr)
}

//export malloc_usable_size
func malloc_usable_size(ptr unsafe.Pointer) C.size_t {
	return C.size_t(api.MallocSize(fromPointer(ptr)))
}
