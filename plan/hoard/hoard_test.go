package hoard

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
)

func TestMutatorSmallAllocGoesThroughTLABOnFree(t *testing.T) {
	m := NewMutator()

	ptr, ok := m.Alloc(mk.NewLayout(64, 8))
	require.True(t, ok)

	m.Dealloc(ptr)

	// A same-size allocation right after a dealloc should be served
	// from the TLAB, handing back the exact same cell.
	ptr2, ok := m.Alloc(mk.NewLayout(64, 8))
	require.True(t, ok)
	require.Equal(t, ptr, ptr2)
}

func TestMutatorLargeAllocUsesLargeObjectSpace(t *testing.T) {
	m := NewMutator()

	ptr, ok := m.Alloc(mk.NewLayout(MaxAllocationSize+1, 8))
	require.True(t, ok)
	m.Dealloc(ptr)
}

func TestMutatorCloseFlushesTLABAndLocalPoolToGlobal(t *testing.T) {
	m := NewMutator()

	var ptrs []mk.Address
	for i := 0; i < 16; i++ {
		ptr, ok := m.Alloc(mk.NewLayout(64, 8))
		require.True(t, ok)
		ptrs = append(ptrs, ptr)
	}
	block := Containing(ptrs[0])
	require.True(t, block.IsOwnedBy(m.local))

	// Freeing just one cell lands it in the TLAB quick cache, not back
	// in the pool, leaving the block non-empty and still local.
	m.Dealloc(ptrs[0])
	require.True(t, block.IsOwnedBy(m.local))

	m.Close()

	require.True(t, block.IsOwnedBy(m.plan.hoardSpace.global),
		"Close must drain the TLAB back through the pool and flush the still-live block to the global pool")
}

func TestMutatorReallocGrowsAndCopies(t *testing.T) {
	m := NewMutator()
	ptr, ok := m.Alloc(mk.NewLayout(32, 8))
	require.True(t, ok)
	mk.StoreAddress(ptr, mk.Address(0x1234))

	newPtr, ok := m.Realloc(ptr, mk.NewLayout(2048, 8))
	require.True(t, ok)
	require.Equal(t, mk.Address(0x1234), mk.LoadAddress(newPtr))
}
