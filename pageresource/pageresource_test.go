package pageresource

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pagetable"
)

func TestFreelistPageResourceAcquireRelease(t *testing.T) {
	reg := pagetable.New()
	r := NewFreelistPageResource(mk.SpaceId(3), reg)

	a, ok := r.AcquirePages(12, 1)
	require.True(t, ok)
	require.True(t, a.IsAlignedTo(4096))
	require.Equal(t, uintptr(4096), r.ReservedBytes())

	require.Equal(t, 1, r.GetContiguousPages(a))

	r.ReleasePages(a, 12)
	require.Equal(t, uintptr(0), r.ReservedBytes())

	b, ok := r.AcquirePages(12, 4)
	require.True(t, ok)
	require.Equal(t, uintptr(4*4096), r.ReservedBytes())
	require.Equal(t, 4, r.GetContiguousPages(b))
	r.ReleasePages(b, 12)
}

func TestBlockPageResourceRecyclesBlocks(t *testing.T) {
	reg := pagetable.New()
	r := NewBlockPageResource(mk.SpaceId(4), 16, reg) // 64 KiB blocks

	a, ok := r.AcquirePages(12, 16)
	require.True(t, ok)
	require.Equal(t, uintptr(1<<16), r.ReservedBytes())

	r.ReleasePages(a, 12)
	require.Equal(t, uintptr(0), r.ReservedBytes())

	b, ok := r.AcquirePages(12, 16)
	require.True(t, ok)
	require.Equal(t, a, b, "a released block should be recycled before bumping the cursor")
}
