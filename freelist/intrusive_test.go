package freelist

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
)

func TestIntrusiveAllocateSplitsRemainder(t *testing.T) {
	f := NewIntrusive()
	base := mk.MetaAlloc(4096, 16)
	f.AddCell(base, 4096, 1)

	a, ok := f.Allocate(64, 1)
	require.True(t, ok)
	require.Equal(t, base, a)
	require.Equal(t, 1, f.Count(), "remainder should be re-inserted as one cell")
}

func TestIntrusiveAllocateEmptyFails(t *testing.T) {
	f := NewIntrusive()
	_, ok := f.Allocate(64, 0)
	require.False(t, ok)
}

func TestIntrusiveDifferentOwnersDoNotCoalesce(t *testing.T) {
	f := NewIntrusive()
	base := mk.MetaAlloc(4096, 16)
	f.AddCell(base, 128, 1)
	a, ok := f.Allocate(128, 1)
	require.True(t, ok)
	require.Equal(t, base, a)
	require.Equal(t, 0, f.Count())

	f.AddCell(base.Add(128), 128, 2)
	require.Equal(t, 1, f.Count())

	f.Release(a, 128, 1)
	require.Equal(t, 2, f.Count(), "adjacent cells with different owners must not merge")
}

func TestIntrusiveSameOwnerCoalesces(t *testing.T) {
	f := NewIntrusive()
	base := mk.MetaAlloc(4096, 16)
	f.AddCell(base, 128, 1)
	a, ok := f.Allocate(128, 1)
	require.True(t, ok)

	f.AddCell(base.Add(128), 128, 1)
	require.Equal(t, 1, f.Count())

	f.Release(a, 128, 1)
	require.Equal(t, 1, f.Count(), "adjacent same-owner cells should merge into one")
}
