package pageresource

import (
	"unsafe"

	mk "github.com/cznic/mallockit"
)

func addrToPtr(addr mk.Address) unsafe.Pointer { return unsafe.Pointer(uintptr(addr)) }
