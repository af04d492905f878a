package hoard

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
)

func newTestBlock(t *testing.T, id mk.SpaceId, sc sizeclass.Class, owner *Pool) SuperBlock {
	t.Helper()
	base, _ := id.AddressSpace()
	var mem mk.RawMemory
	require.NoError(t, mem.Map(base, blockBytes))
	block := SuperBlock(base)
	block.Init(owner, sc)
	return block
}

func TestSuperBlockAllocFreeCellRoundTrip(t *testing.T) {
	owner := NewPool(false)
	block := newTestBlock(t, mk.SpaceId(8), sizeclass.FromBytes(64), owner)

	require.True(t, block.IsEmpty())
	require.True(t, block.IsOwnedBy(owner))

	cell, ok := block.AllocCell()
	require.True(t, ok)
	require.False(t, block.IsEmpty())

	block.FreeCell(cell)
	require.True(t, block.IsEmpty())

	cell2, ok := block.AllocCell()
	require.True(t, ok)
	require.Equal(t, cell, cell2, "freed cell should be reused via the LIFO free list")
}

func TestSuperBlockBecomesFullAtCapacity(t *testing.T) {
	owner := NewPool(false)
	sc := sizeclass.FromBytes(1 << 16)
	block := newTestBlock(t, mk.SpaceId(9), sc, owner)

	count := 0
	for {
		if _, ok := block.AllocCell(); !ok {
			break
		}
		count++
		if count > 10 {
			break
		}
	}
	require.True(t, block.IsFull())
}

func TestGroupForReflectsOccupancy(t *testing.T) {
	owner := NewPool(false)
	sc := sizeclass.FromBytes(64)
	block := newTestBlock(t, mk.SpaceId(10), sc, owner)

	emptyGroup := groupFor(block, false)
	_, _ = block.AllocCell()
	fullerGroup := groupFor(block, false)
	require.GreaterOrEqual(t, fullerGroup, emptyGroup)
}
