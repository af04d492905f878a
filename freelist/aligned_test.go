package freelist

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
)

func newTestAligned(t *testing.T, numClasses int) (*Aligned, mk.Address) {
	t.Helper()
	base := mk.MetaAlloc(uintptr(1)<<uint(numClasses-1)*16, 16)
	f := NewAligned(base, 16, numClasses)
	f.ReleaseCell(base, numClasses-1)
	return f, base
}

func TestAlignedAllocateSplitsAndCoalesces(t *testing.T) {
	f, base := newTestAligned(t, 8)

	a, ok := f.AllocateCell(1)
	require.True(t, ok)
	require.Equal(t, base, a)

	b, ok := f.AllocateCell(1)
	require.True(t, ok)
	require.NotEqual(t, a, b)

	f.Release(a, 1)
	f.Release(b, 1)

	// After releasing both children the top-level cell should be whole
	// again: the next allocation at the top class must succeed.
	top, ok := f.allocateClass(7)
	require.True(t, ok)
	require.Equal(t, base, top)
}

func TestAlignedExhaustion(t *testing.T) {
	f, _ := newTestAligned(t, 2)
	_, ok1 := f.AllocateCell(1)
	require.True(t, ok1)
	_, ok2 := f.AllocateCell(1)
	require.True(t, ok2)
	_, ok3 := f.AllocateCell(1)
	require.False(t, ok3)
}
