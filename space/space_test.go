package space

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
)

func TestBumpAllocatorMonotonicAndAligned(t *testing.T) {
	sp := NewImmortalSpace(mk.SpaceId(5))
	a := NewBumpAllocator(sp)

	var prev mk.Address
	for i := 0; i < 10; i++ {
		ptr, ok := a.Alloc(mk.NewLayout(32, 8))
		require.True(t, ok)
		require.True(t, ptr.IsAlignedTo(8))
		require.True(t, ptr > prev)
		require.Equal(t, mk.NewLayout(32, 8), a.GetLayout(ptr))
		prev = ptr
	}
}

func TestLargeObjectAllocatorRoundTrips(t *testing.T) {
	sp := NewLargeObjectSpace(mk.SpaceId(6))
	a := NewLargeObjectAllocator(sp)

	ptr, ok := a.Alloc(mk.NewLayout(3<<20, 8))
	require.True(t, ok)
	require.True(t, ptr.IsAlignedTo(4096))
	layout := a.GetLayout(ptr)
	require.GreaterOrEqual(t, layout.Size, uintptr(3<<20))

	a.Dealloc(ptr)
}

func TestFreeListAllocatorAllocDealloc(t *testing.T) {
	sp := NewFreeListSpace(mk.SpaceId(7))
	a := NewFreeListAllocator(sp)

	ptrs := make([]mk.Address, 0, 64)
	for i := 0; i < 64; i++ {
		ptr, ok := a.Alloc(mk.NewLayout(48, 16))
		require.True(t, ok)
		require.True(t, ptr.IsAlignedTo(16))
		ptrs = append(ptrs, ptr)
	}
	for _, p := range ptrs {
		a.Dealloc(p)
	}

	ptr, ok := a.Alloc(mk.NewLayout(64, 64))
	require.True(t, ok)
	require.True(t, ptr.IsAlignedTo(64))
}
