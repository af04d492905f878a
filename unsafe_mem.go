package mallockit

import "unsafe"

// addressOf returns the address of the first byte of b. b must be
// non-empty.
func addressOf(b []byte) Address {
	return Address(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}

// sliceAt reinterprets the size bytes starting at addr as a []byte,
// for handing to unix.Munmap/unix.Mmap-family calls that want a slice.
func sliceAt(addr Address, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), int(size))
}

// loadAddress reads an Address stored at p (used by intrusive
// free-list cells, which thread prev/next pointers through the first
// machine word of otherwise-free memory).
func loadAddress(p Address) Address {
	return *(*Address)(unsafe.Pointer(uintptr(p)))
}

// storeAddress writes v at p.
func storeAddress(p, v Address) {
	*(*Address)(unsafe.Pointer(uintptr(p))) = v
}

// LoadAddress and StoreAddress are the exported forms of
// loadAddress/storeAddress, for packages outside mallockit (freelist,
// pageresource) that thread links through raw freed memory the same
// way.
func LoadAddress(p Address) Address { return loadAddress(p) }
func StoreAddress(p, v Address)     { storeAddress(p, v) }

// ZeroMemory fills the size bytes starting at addr with zero, the
// shared implementation behind every plan's alloc_zeroed (calloc path).
func ZeroMemory(addr Address, size uintptr) {
	if size == 0 {
		return
	}
	clear(sliceAt(addr, size))
}

// Load32/Store32 and Load64/Store64 read and write fixed-width little
// headers embedded immediately before a returned pointer (the bump
// plan's (u32 size, u32 align) header, the free-list cell header's
// packed word), without requiring callers outside this package to
// reach for unsafe themselves.
func Load32(p Address) uint32     { return *(*uint32)(asPointer(p)) }
func Store32(p Address, v uint32) { *(*uint32)(asPointer(p)) = v }

func Load64(p Address) uint64     { return *(*uint64)(asPointer(p)) }
func Store64(p Address, v uint64) { *(*uint64)(asPointer(p)) = v }

// LoadByte and StoreByte read and write a single header byte, used by
// packed sub-word fields (a size class plus a fullness group sharing
// one machine word of a block header).
func LoadByte(p Address) byte     { return *(*byte)(asPointer(p)) }
func StoreByte(p Address, v byte) { *(*byte)(asPointer(p)) = v }

// LoadUintptr and StoreUintptr read and write a pointer-sized value,
// used to store an owning pool's address inside a superblock header
// without round-tripping through the garbage collector.
func LoadUintptr(p Address) uintptr     { return *(*uintptr)(asPointer(p)) }
func StoreUintptr(p Address, v uintptr) { *(*uintptr)(asPointer(p)) = v }

// CopyMemory copies size bytes from src to dst, the shared
// implementation behind every plan's realloc memcpy.
func CopyMemory(dst, src Address, size uintptr) {
	if size == 0 {
		return
	}
	copy(sliceAt(dst, size), sliceAt(src, size))
}

func asPointer(p Address) unsafe.Pointer { return unsafe.Pointer(uintptr(p)) }
