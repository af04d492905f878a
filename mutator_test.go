package mallockit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeMutator struct {
	layouts map[Address]Layout
	next    Address
	freed   []Address
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{layouts: map[Address]Layout{}, next: MetaAlloc(1<<16, 16)}
}

func (m *fakeMutator) Alloc(layout Layout) (Address, bool) {
	ptr := m.next
	m.next += layout.PadToAlign().Size
	m.layouts[ptr] = layout
	return ptr, true
}

func (m *fakeMutator) AllocZeroed(layout Layout) (Address, bool) { return m.Alloc(layout) }

func (m *fakeMutator) Dealloc(ptr Address) { m.freed = append(m.freed, ptr) }

func (m *fakeMutator) GetLayout(ptr Address) Layout { return m.layouts[ptr] }

func (m *fakeMutator) Realloc(ptr Address, newLayout Layout) (Address, bool) {
	return Realloc(m, ptr, newLayout)
}

func TestReallocReturnsSamePointerWhenCurrentLayoutSatisfies(t *testing.T) {
	m := newFakeMutator()
	ptr, _ := m.Alloc(NewLayout(64, 8))

	newPtr, ok := Realloc(m, ptr, NewLayout(32, 8))
	require.True(t, ok)
	require.Equal(t, ptr, newPtr)
	require.Empty(t, m.freed, "shrinking in place must not free the old pointer")
}

func TestReallocAllocatesCopiesAndFreesOnGrow(t *testing.T) {
	m := newFakeMutator()
	ptr, _ := m.Alloc(NewLayout(16, 8))
	StoreAddress(ptr, Address(0xfeedface))

	newPtr, ok := Realloc(m, ptr, NewLayout(128, 8))
	require.True(t, ok)
	require.NotEqual(t, ptr, newPtr)
	require.Equal(t, Address(0xfeedface), LoadAddress(newPtr))
	require.Contains(t, m.freed, ptr)
}
