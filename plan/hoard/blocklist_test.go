package hoard

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
)

func TestBlockListPushFindPop(t *testing.T) {
	owner := NewPool(false)
	sc := sizeclass.FromBytes(64)
	a := newTestBlock(t, mk.SpaceId(11), sc, owner)
	b := newTestBlock(t, mk.SpaceId(12), sc, owner)

	var list blockList
	list.push(a, false, true)
	list.push(b, false, true)

	found, ok := list.find()
	require.True(t, ok)
	require.True(t, found == a || found == b)

	popped, ok := list.pop()
	require.True(t, ok)
	require.True(t, popped == a || popped == b)
}

func TestBlockListRemove(t *testing.T) {
	owner := NewPool(false)
	sc := sizeclass.FromBytes(64)
	a := newTestBlock(t, mk.SpaceId(13), sc, owner)

	var list blockList
	list.push(a, false, true)
	list.remove(a, true)

	_, ok := list.find()
	require.False(t, ok)
}

func TestShouldFlushOnMostlyEmptyList(t *testing.T) {
	var list blockList
	list.incTotalBytes(blockBytes * 4)
	list.incUsedBytes(0)
	require.True(t, list.shouldFlush(6))
}

func TestShouldNotFlushWhenNearlyFull(t *testing.T) {
	var list blockList
	list.incTotalBytes(blockBytes)
	list.incUsedBytes(blockBytes - 64)
	require.False(t, list.shouldFlush(6))
}

func TestBlockListPopAllDrainsCacheAndEveryGroupIncludingFull(t *testing.T) {
	owner := NewPool(false)
	sc := sizeclass.FromBytes(64)
	a := newTestBlock(t, mk.SpaceId(3), sc, owner)
	b := newTestBlock(t, mk.SpaceId(4), sc, owner)

	var list blockList
	list.cache = a // occupies the sticky cache slot directly
	list.push(b, false, true)

	blocks := list.popAll()
	require.Len(t, blocks, 2)
	require.Contains(t, blocks, a)
	require.Contains(t, blocks, b)

	_, ok := list.find()
	require.False(t, ok, "popAll must leave the list empty")
	require.Zero(t, list.usedBytes)
	require.Zero(t, list.totalBytes)
}
