package hoard

import (
	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pagetable"
	"github.com/cznic/mallockit/pageresource"
	"github.com/cznic/mallockit/sizeclass"
)

// pageLogBytes is log2 of the OS page size every BlockPageResource maps
// in units of.
const pageLogBytes = 12

// MaxAllocationSize is the largest request the Hoard small-object path
// accepts; anything bigger falls through to the large-object space
// (spec.md §4.9: "MAX_ALLOCATION_SIZE = SuperBlock::BYTES/4"). At that
// largest small-object size class a block holds three objects: the
// header, padded to the cell size, takes the first of the four slots.
const MaxAllocationSize = blockBytes / 4

// HoardSpace is the process-wide address range backing every
// superblock, plus the single global Pool every thread flushes
// mostly-empty blocks into and pulls fresh ones from. Grounded on
// original_source/hoard/src/hoard_space.rs.
type HoardSpace struct {
	id     mk.SpaceId
	pr     *pageresource.BlockPageResource
	global *Pool
}

// NewHoardSpace creates the space owning id's sub-range of the heap.
func NewHoardSpace(id mk.SpaceId) *HoardSpace {
	return &HoardSpace{
		id:     id,
		pr:     pageresource.NewBlockPageResource(id, blockLogBytes, pagetable.Default),
		global: NewPool(true),
	}
}

// CanAllocate reports whether layout belongs on the small-object path.
func (s *HoardSpace) CanAllocate(layout mk.Layout) bool {
	return layout.PadToAlign().Size <= MaxAllocationSize
}

// acquireBlock finds a non-full block of class sc for local, pulling
// from the global pool before mapping fresh memory, and runs register
// to link the block into the caller's (already-locked) BlockList.
func (s *HoardSpace) acquireBlock(sc sizeclass.Class, local *Pool, register func(SuperBlock)) (SuperBlock, bool) {
	if block, ok := s.global.Pop(sc); ok {
		register(block)
		return block, true
	}
	pages := int(blockBytes >> pageLogBytes)
	addr, ok := s.pr.AcquirePages(pageLogBytes, pages)
	if !ok {
		return 0, false
	}
	block := SuperBlock(addr)
	block.Init(local, sc)
	register(block)
	return block, true
}

// flushBlock hands block over to the global pool, spec.md §4.9's
// flush heuristic's target.
func (s *HoardSpace) flushBlock(sc sizeclass.Class, block SuperBlock) {
	s.global.Push(sc, block)
}

// releaseBlock returns an emptied block's pages to the page resource's
// recycle list.
func (s *HoardSpace) releaseBlock(block SuperBlock) {
	s.pr.ReleasePages(block.Start(), pageLogBytes)
}

// GetLayout recovers ptr's Layout from the size class fixed into its
// containing block's header.
func (s *HoardSpace) GetLayout(ptr mk.Address) mk.Layout {
	sc := Containing(ptr).SizeClass()
	return mk.NewLayout(sc.Bytes(), sc.Bytes())
}
