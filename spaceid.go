package mallockit

// SpaceId identifies one of up to 16 sub-ranges ("spaces") of the
// global Heap reservation. It is encoded as a 4-bit field directly
// above the heap's base address (spec.md §3 "SpaceId"), so the space
// owning any live pointer is recoverable by masking+subtracting alone,
// with no lookup.
//
// The Rust original anchors the heap at a hardcoded absolute address
// (1<<45) so the space id can be read directly off the raw pointer
// bits with no reference to the heap's base. Go programs cannot ask
// mmap for a guaranteed exact load address the way a non-PIE process
// image can (ASLR, and golang.org/x/sys/unix.Mmap never takes a
// MAP_FIXED hint without also taking the fixed-address risk spec.md
// §4.2 describes for the page resources themselves) so this rendition
// computes the space id relative to the heap's actual runtime base
// instead of an absolute bit position. This preserves the O(1),
// lookup-free property the spec requires while remaining correct
// regardless of where the OS placed the reservation; it is recorded
// as a deliberate deviation in DESIGN.md.
type SpaceId uint8

const (
	// LogMaxSpaceSize is log2 of the number of bytes reserved per space
	// (2^41 bytes).
	LogMaxSpaceSize = 41
	spaceIdShift    = LogMaxSpaceSize
	spaceIdMask     = Address(0b1111) << spaceIdShift

	// DefaultSpace is the plan's default (small-object) space.
	DefaultSpace SpaceId = 0
	// LargeObjectSpaceID is reserved for the large-object space, used
	// as the universal fallback for over-threshold allocations.
	LargeObjectSpaceID SpaceId = 1
)

// Next returns the next space id. Panics if id is 0b1111, the highest
// of the 16 ids, which has no successor.
func (id SpaceId) Next() SpaceId {
	if id == 0b1111 {
		panic("mallockit: no more space ids available")
	}
	return id + 1
}

// SpaceIdFromAddress recovers the SpaceId encoded in addr, reserving
// the heap first if needed. Panics if that reservation fails. addr is
// not checked against the heap bounds; Contains makes that check.
func SpaceIdFromAddress(addr Address) SpaceId {
	start, _, err := Heap()
	if err != nil {
		panic("mallockit: heap not reserved: " + err.Error())
	}
	rel := addr - start
	return SpaceId((rel & spaceIdMask) >> spaceIdShift)
}

// Contains reports whether addr belongs to the space id.
func (id SpaceId) Contains(addr Address) bool {
	start, end, err := Heap()
	if err != nil || addr < start || addr >= end {
		return false
	}
	return SpaceIdFromAddress(addr) == id
}

// AddressSpace returns the [start, end) range of addresses owned by id,
// relative to the heap's runtime base.
func (id SpaceId) AddressSpace() (start, end Address) {
	base, _, err := Heap()
	if err != nil {
		panic("mallockit: heap not reserved: " + err.Error())
	}
	start = base + Address(uintptr(id)<<LogMaxSpaceSize)
	end = start + Address(uintptr(1)<<LogMaxSpaceSize)
	return start, end
}
