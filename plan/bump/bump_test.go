package bump

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
)

func TestMutatorAllocIsMonotonicAndAligned(t *testing.T) {
	m := NewMutator()

	var prev mk.Address
	for i := 0; i < 8; i++ {
		ptr, ok := m.Alloc(mk.NewLayout(48, 16))
		require.True(t, ok)
		require.True(t, ptr.IsAlignedTo(16))
		require.True(t, ptr > prev)
		prev = ptr
	}
}

func TestMutatorDeallocIsNoop(t *testing.T) {
	m := NewMutator()
	ptr, ok := m.Alloc(mk.NewLayout(32, 8))
	require.True(t, ok)

	m.Dealloc(ptr)
	require.Equal(t, mk.NewLayout(32, 8), m.GetLayout(ptr))
}

func TestMutatorReallocGrowsAndCopies(t *testing.T) {
	m := NewMutator()
	ptr, ok := m.Alloc(mk.NewLayout(16, 8))
	require.True(t, ok)
	mk.StoreAddress(ptr, mk.Address(0xdeadbeef))

	newPtr, ok := m.Realloc(ptr, mk.NewLayout(64, 8))
	require.True(t, ok)
	require.Equal(t, mk.Address(0xdeadbeef), mk.LoadAddress(newPtr))
}
