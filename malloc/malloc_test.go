package malloc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	mk "github.com/cznic/mallockit"
)

// fakeMutator is an in-memory stand-in for a real plan mutator, letting
// the ABI shim layer be tested without mapping any real memory.
type fakeMutator struct {
	next    mk.Address
	layouts map[mk.Address]mk.Layout
	failNow bool
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{next: 0x1000, layouts: map[mk.Address]mk.Layout{}}
}

func (m *fakeMutator) Alloc(layout mk.Layout) (mk.Address, bool) {
	if m.failNow {
		return 0, false
	}
	ptr := m.next
	m.next += (layout.Size + 63) &^ 63
	m.layouts[ptr] = layout
	return ptr, true
}

func (m *fakeMutator) AllocZeroed(layout mk.Layout) (mk.Address, bool) {
	return m.Alloc(layout)
}

func (m *fakeMutator) Dealloc(ptr mk.Address) {
	delete(m.layouts, ptr)
}

func (m *fakeMutator) GetLayout(ptr mk.Address) mk.Layout {
	return m.layouts[ptr]
}

func (m *fakeMutator) Realloc(ptr mk.Address, newLayout mk.Layout) (mk.Address, bool) {
	newPtr, ok := m.Alloc(newLayout)
	if !ok {
		return 0, false
	}
	delete(m.layouts, ptr)
	return newPtr, true
}

func newTestAPI(m *fakeMutator) API {
	return API{
		Mutator:   func() mk.Mutator { return m },
		GetLayout: m.GetLayout,
	}
}

func TestAllocRoundsUpToMinAlignment(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, errno := api.Alloc(1, 8)
	require.Zero(t, errno)
	require.Equal(t, uintptr(MinAlignment), m.layouts[ptr].Size)
}

func TestAllocReturnsENOMEMOnFailure(t *testing.T) {
	m := newFakeMutator()
	m.failNow = true
	api := newTestAPI(m)

	_, errno := api.Alloc(64, 8)
	require.Equal(t, int(unix.ENOMEM), errno)
}

func TestCallocDetectsOverflow(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	_, errno := api.Calloc(^uintptr(0), 2)
	require.Equal(t, int(unix.ENOMEM), errno)
}

func TestCallocAllocatesProduct(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, errno := api.Calloc(4, 32)
	require.Zero(t, errno)
	require.Equal(t, uintptr(128), m.layouts[ptr].Size)
}

func TestReallocNullActsAsAlloc(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, errno := api.Realloc(0, 64)
	require.Zero(t, errno)
	require.False(t, ptr.IsZero())
}

func TestReallocZeroSizeFrees(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, _ := api.Alloc(64, 8)
	newPtr, errno := api.Realloc(ptr, 0)
	require.Zero(t, errno)
	require.True(t, newPtr.IsZero())
	_, present := m.layouts[ptr]
	require.False(t, present)
}

func TestPosixMemalignRejectsNonPowerOfTwo(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	_, errno := api.PosixMemalign(24, 64)
	require.Equal(t, int(unix.EINVAL), errno)
}

func TestPosixMemalignRejectsAlignmentBelowSizeofUsize(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	// 4 is a power of two but smaller than sizeof(usize) (8 on a
	// 64-bit target), so it must still be rejected.
	_, errno := api.PosixMemalign(4, 64)
	require.Equal(t, int(unix.EINVAL), errno)
}

func TestPosixMemalignAcceptsSizeofUsizeAlignment(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, errno := api.PosixMemalign(8, 64)
	require.Zero(t, errno)
	require.False(t, ptr.IsZero())
}

func TestAlignedAllocRejectsUnalignedSize(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	_, errno := api.AlignedAlloc(64, 100)
	require.Equal(t, int(unix.EINVAL), errno)
}

func TestVallocAlignsToPageSize(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, errno := api.Valloc(10)
	require.Zero(t, errno)
	require.Equal(t, uintptr(PageSize), m.layouts[ptr].Align)
}

func TestPvallocRoundsSizeUpToPage(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, errno := api.Pvalloc(1)
	require.Zero(t, errno)
	require.Equal(t, uintptr(PageSize), m.layouts[ptr].Size)
}

func TestFreeOfNullIsNoop(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)
	api.Free(0)
}

func TestIsInHeapBoundsCheckAgainstTheRealReservation(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	start, end, err := mk.Heap()
	require.NoError(t, err)
	require.True(t, api.IsInHeap(start), "the reservation's first byte is in the heap")
	require.False(t, api.IsInHeap(end), "the reservation's end is one-past-the-last byte, not in the heap")
	require.False(t, api.IsInHeap(start-1), "one byte before the reservation is not in the heap")
}

func TestMallocSizeReportsLayoutSize(t *testing.T) {
	m := newFakeMutator()
	api := newTestAPI(m)

	ptr, _ := api.Alloc(64, 8)
	require.Equal(t, uintptr(64), api.MallocSize(ptr))
}
