package hoard

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
)

func TestPoolAllocCellAcquiresFreshBlock(t *testing.T) {
	space := NewHoardSpace(mk.SpaceId(14))
	local := NewPool(false)
	sc := sizeclass.FromBytes(64)

	cell, ok := local.AllocCell(sc, space)
	require.True(t, ok)
	require.False(t, cell.IsZero())
	require.True(t, Containing(cell).IsOwnedBy(local))
}

func TestPoolFreeCellReturnsToSameOwner(t *testing.T) {
	space := NewHoardSpace(mk.SpaceId(15))
	local := NewPool(false)
	sc := sizeclass.FromBytes(64)

	var cells []mk.Address
	for i := 0; i < 16; i++ {
		cell, ok := local.AllocCell(sc, space)
		require.True(t, ok)
		cells = append(cells, cell)
	}
	for _, cell := range cells {
		local.FreeCell(cell, space)
	}

	cell, ok := local.AllocCell(sc, space)
	require.True(t, ok)
	require.True(t, Containing(cell).IsOwnedBy(local))
}

func TestPoolFlushAllMovesEveryLocalBlockToGlobal(t *testing.T) {
	space := NewHoardSpace(mk.SpaceId(5))
	local := NewPool(false)
	sc := sizeclass.FromBytes(64)

	var cells []mk.Address
	for i := 0; i < 8; i++ {
		cell, ok := local.AllocCell(sc, space)
		require.True(t, ok)
		cells = append(cells, cell)
	}
	block := Containing(cells[0])
	require.True(t, block.IsOwnedBy(local))

	local.FlushAll(space)

	require.True(t, block.IsOwnedBy(space.global), "FlushAll must hand every local block to the global pool")
	_, ok := local.blocks[sc].list.find()
	require.False(t, ok, "the local pool must be left empty after FlushAll")
}

func TestPoolPushPopRoundTripsThroughGlobal(t *testing.T) {
	space := NewHoardSpace(mk.SpaceId(2))
	local := NewPool(false)
	sc := sizeclass.FromBytes(64)

	cell, ok := local.AllocCell(sc, space)
	require.True(t, ok)
	block := Containing(cell)

	space.flushBlock(sc, block)
	require.True(t, block.IsOwnedBy(space.global))

	popped, ok := space.global.Pop(sc)
	require.True(t, ok)
	require.Equal(t, block, popped)
}
