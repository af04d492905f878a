// Command buddy builds the buddy plan as a C shared library exporting
// the standard malloc ABI (spec.md §0, §4.6), built with
// -buildmode=c-shared and preloaded ahead of libc (LD_PRELOAD on
// Linux, DYLD_INSERT_LIBRARIES on macOS).
package main

/*
#include <errno.h>

static void mallockit_set_errno(int e) { errno = e; }
*/
import "C"

import (
	"unsafe"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/malloc"
	"github.com/cznic/mallockit/plan/buddy"
	"github.com/cznic/mallockit/tls"
)

// buddy has nothing to flush back on thread exit: its Mutator holds
// no quick cache of its own, so the slot is given no teardown
// callback.
var mutatorSlot = tls.NewSlot(func() mk.Mutator { return buddy.NewMutator() }, nil)

var api = malloc.API{
	Mutator:   mutatorSlot.Current,
	GetLayout: buddy.Get().GetLayout,
}

func toPointer(a mk.Address) unsafe.Pointer {
	if a.IsZero() {
		return nil
	}
	return unsafe.Pointer(uintptr(a))
}

func fromPointer(p unsafe.Pointer) mk.Address {
	return mk.Address(uintptr(p))
}

func setErrno(e int) {
	if e != 0 {
		C.mallockit_set_errno(C.int(e))
	}
}

//export calloc
func calloc(count, size C.size_t) unsafe.Pointer {
	ptr, errno := api.Calloc(uintptr(count), uintptr(size))
	setErrno(errno)
	return toPointer(ptr)
}

//export posix_memalign
func posix_memalign(result *unsafe.Pointer, alignment, size C.size_t) C.int {
	ptr, errno := api.PosixMemalign(uintptr(alignment), uintptr(size))
	if errno == 0 {
		*result = toPointer(ptr)
	}
	return C.int(errno)
}

//export valloc
func valloc(size C.size_t) unsafe.Pointer {
	ptr, errno := api.Valloc(uintptr(size))
	setErrno(errno)
	return toPointer(ptr)
}

func main() {}
