//go:build linux

package mallockit

import (
	"golang.org/x/sys/unix"

	"github.com/cznic/mallockit/config"
)

// mapFixed commits backing for [addr, addr+size) using
// MAP_FIXED_NOREPLACE (Linux >= 4.17, spec.md §6 platform constraint)
// so a concurrent or buggy double-map fails loudly instead of
// silently replacing an existing mapping. Grounded on
// original_source/mallockit/src/space/page_resource.rs's map_pages,
// rendered with a direct mmap(2) syscall the way cznic/memory's
// mmap_unix.go reaches for syscall.Syscall rather than a higher-level
// wrapper whenever it needs control the stdlib/x-sys helpers don't
// expose (here: an explicit, non-zero target address).
func mapFixed(addr Address, size uintptr) error {
	const noFD = ^uintptr(0) // fd = -1
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		uintptr(addr),
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_FIXED_NOREPLACE,
		noFD,
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

func adviseHugePage(addr Address, size uintptr) {
	if !config.TransparentHugePages() {
		return
	}
	_ = unix.Madvise(sliceAt(addr, size), unix.MADV_HUGEPAGE)
}
