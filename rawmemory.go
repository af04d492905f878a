package mallockit

import "golang.org/x/sys/unix"

// RawMemory wraps the OS-level mmap/munmap/madvise primitives used by
// the heap reservation and every page resource. It never goes through
// the plan's own allocation path (spec.md §9 "metadata allocation"),
// so the framework cannot reenter itself while mapping its own
// bookkeeping structures.
//
// Grounded on cznic/memory's mmap_unix.go (raw syscall.Mmap/Syscall
// wrapping) generalized to take an explicit target address, and on
// the MAP_FIXED_NOREPLACE dance in original_source's
// freelist_page_resource.rs / block_page_resource.rs.
type RawMemory struct{}

// ReserveAnywhere reserves size bytes of anonymous, not-yet-committed
// address space anywhere the OS chooses (used once, to carve out the
// over-sized heap reservation that is then trimmed to alignment).
func (RawMemory) ReserveAnywhere(size uintptr) (Address, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return Address(uintptr(addressOf(b))), nil
}

// ReleaseReservation releases size bytes previously reserved at addr.
func (RawMemory) ReleaseReservation(addr Address, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(addr), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Map commits read/write backing for the [addr, addr+size) range,
// which must fall inside a prior reservation. It fails rather than
// silently remapping memory that is already backed (spec.md §4.2's
// MAP_FIXED_NOREPLACE requirement on Linux).
func (RawMemory) Map(addr Address, size uintptr) error {
	return mapFixed(addr, size)
}

// Unmap releases the backing (and address-space reservation) for
// [addr, addr+size).
func (RawMemory) Unmap(addr Address, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(addr), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// AdviseHugePage hints to the OS that [addr, addr+size) should be
// backed by transparent huge pages where possible, applied to >=2MiB
// mappings per spec.md §4.2 when MALLOCKIT_THP is set (see config.go).
func (RawMemory) AdviseHugePage(addr Address, size uintptr) {
	adviseHugePage(addr, size)
}
