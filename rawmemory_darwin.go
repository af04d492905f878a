//go:build darwin

package mallockit

import (
	"golang.org/x/sys/unix"
)

// mapFixed commits backing for [addr, addr+size) with plain MAP_FIXED:
// macOS has no MAP_FIXED_NOREPLACE equivalent, so unlike the Linux
// path a double-map here silently replaces rather than erroring
// (spec.md §4.2). Large-object and page-resource callers never
// double-map in practice (the page registry and free lists are the
// single source of truth for "already mapped"), so this is safe in
// the same way the Rust original treats it.
func mapFixed(addr Address, size uintptr) error {
	const noFD = ^uintptr(0) // fd = -1
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		uintptr(addr),
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED,
		noFD,
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// adviseHugePage is a no-op on macOS: there is no MADV_HUGEPAGE
// equivalent exposed by the kernel's madvise(2).
func adviseHugePage(addr Address, size uintptr) {}
