//go:build darwin

package main

/*
#include <dlfcn.h>
#include <stddef.h>

typedef size_t (*mallockit_malloc_size_fn)(const void *);

static mallockit_malloc_size_fn mallockit_real_malloc_size;

// mallockit_darwin_init resolves the system allocator's malloc_size,
// the function this shim's own malloc_size interposes, via
// RTLD_NEXT — the standard way an interposing symbol reaches the
// implementation it is shadowing without recursing into itself.
static void mallockit_darwin_init(void) {
    mallockit_real_malloc_size = (mallockit_malloc_size_fn)dlsym(RTLD_NEXT, "malloc_size");
}

static size_t mallockit_system_malloc_size(const void *p) {
    if (mallockit_real_malloc_size == NULL) {
        return 0;
    }
    return mallockit_real_malloc_size(p);
}
*/
import "C"

import (
	"unsafe"

	"github.com/cznic/mallockit/malloc"
)

func init() {
	C.mallockit_darwin_init()
}

// malloc(0) returns a valid pointer to a zero-sized (MinAlignment
// rounded) allocation on macOS, unlike the Linux variant, so no
// size==0 special case is needed: api.Alloc already clamps up.
//
//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	ptr, errno := api.Alloc(uintptr(size), malloc.MinAlignment)
	setErrno(errno)
	return toPointer(ptr)
}

// free tolerates addresses outside the heap reservation by doing
// nothing, spec.md §4.6: such a pointer was handed out by the system
// zone before this library was loaded, and this framework has no
// record of it to reclaim.
//
//export free
func free(ptr unsafe.Pointer) {
	addr := fromPointer(ptr)
	if addr.IsZero() || !api.IsInHeap(addr) {
		return
	}
	api.Free(addr)
}

//export realloc
func realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	newPtr, errno := api.Realloc(fromPointer(ptr), uintptr(size))
	setErrno(errno)
	return toPointer(newPtr)
}

// reallocf is realloc's macOS-only sibling: on failure it frees ptr
// instead of leaving the caller to do so.
//
//export reallocf
func reallocf(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	result := realloc(ptr, size)
	if result == nil && size != 0 {
		free(ptr)
	}
	return result
}

// malloc_size answers a foreign pointer (one outside this heap
// reservation) by delegating to the system zone's own malloc_size,
// spec.md §4.6's "size query is answered by the system zone".
//
//export malloc_size
func malloc_size(ptr unsafe.Pointer) C.size_t {
	addr := fromPointer(ptr)
	if addr.IsZero() {
		return 0
	}
	if !api.IsInHeap(addr) {
		return C.mallockit_system_malloc_size(ptr)
	}
	return C.size_t(api.MallocSize(addr))
}
