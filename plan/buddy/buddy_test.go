package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/space"
)

func TestMutatorSmallAllocDeallocRoundTrip(t *testing.T) {
	m := NewMutator()

	ptr, ok := m.Alloc(mk.NewLayout(48, 16))
	require.True(t, ok)
	require.True(t, ptr.IsAlignedTo(16))

	m.Dealloc(ptr)
}

func TestMutatorLargeAllocGoesToLargeObjectSpace(t *testing.T) {
	m := NewMutator()

	big := mk.NewLayout(space.MaxAllocationSize+1, 8)
	require.False(t, canAllocateSmall(big))

	ptr, ok := m.Alloc(big)
	require.True(t, ok)
	require.Equal(t, mk.LargeObjectSpaceID, mk.SpaceIdFromAddress(ptr))
	m.Dealloc(ptr)
}

func TestMutatorReallocGrowsAndCopies(t *testing.T) {
	m := NewMutator()
	ptr, ok := m.Alloc(mk.NewLayout(32, 8))
	require.True(t, ok)
	mk.StoreAddress(ptr, mk.Address(0xcafef00d))

	newPtr, ok := m.Realloc(ptr, mk.NewLayout(256, 8))
	require.True(t, ok)
	require.Equal(t, mk.Address(0xcafef00d), mk.LoadAddress(newPtr))
}
