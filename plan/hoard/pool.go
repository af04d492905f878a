package hoard

import (
	"runtime"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
)

// numSizeClasses bounds the size classes a Pool tracks, matching
// original_source/hoard/src/pool.rs's BlockLists = [Mutex<BlockList>;
// 32] (only the classes up to SuperBlock.Bytes/4 are ever populated;
// 32 is generous headroom carried over from the source array size).
const numSizeClasses = 32

type sizeClassSlot struct {
	mu   spinMutex
	list blockList
}

// Pool is a collection of superblocks, one BlockList per size class,
// each independently locked. The global pool (spec.md §4.9's "Global
// Pool") is shared by every thread; each thread also owns exactly one
// local Pool of its own, grounded on original_source/hoard/src/pool.rs.
//
// The source's Pool additionally carries a secondary per-size-class
// free-cell cache (add_to_cache/remove_from_cache) whose only
// populating call site is commented out in pool.rs — it is dead code
// there too. It is dropped here rather than carried over inert; the
// thread-local quick-cache behavior spec.md §4.9 describes is fully
// provided by the tlab.DiscreteTLAB each Mutator holds (see hoard.go).
type Pool struct {
	global bool
	blocks [numSizeClasses]sizeClassSlot
}

// NewPool creates an empty pool. global marks the process-wide shared
// pool every HoardSpace owns exactly one of.
func NewPool(global bool) *Pool {
	return &Pool{global: global}
}

// Push inserts block (assumed non-full) into the pool under sc's lock,
// transferring ownership to p.
func (p *Pool) Push(sc sizeclass.Class, block SuperBlock) {
	slot := &p.blocks[sc]
	slot.mu.Lock()
	block.SetOwner(p)
	slot.list.push(block, false, true)
	slot.mu.Unlock()
}

// Pop removes and returns any block of class sc from the global pool
// (spec.md §4.9: "pop(sc) returns a block from the most-empty group").
func (p *Pool) Pop(sc sizeclass.Class) (SuperBlock, bool) {
	slot := &p.blocks[sc]
	slot.mu.Lock()
	block, ok := slot.list.pop()
	slot.mu.Unlock()
	return block, ok
}

// acquireBlockSlow finds a non-full block for sc, preferring one
// already on the local list, then one flushed to the global pool, and
// finally a fresh block mapped from the page resource. Called with
// slot's lock held.
func (p *Pool) acquireBlockSlow(sc sizeclass.Class, space *HoardSpace, slot *sizeClassSlot) (SuperBlock, bool) {
	if block, ok := slot.list.find(); ok {
		slot.list.moveToFront(block, true)
		return block, true
	}
	return space.acquireBlock(sc, p, func(block SuperBlock) {
		block.SetOwner(p)
		slot.list.push(block, true, true)
	})
}

// AllocCell allocates one cell of size class sc from the local pool,
// spec.md §4.9's local allocation path (steps 2-4; the quick-cache step
// 1 lives in Mutator.Alloc).
func (p *Pool) AllocCell(sc sizeclass.Class, space *HoardSpace) (mk.Address, bool) {
	slot := &p.blocks[sc]
	slot.mu.Lock()
	defer slot.mu.Unlock()
	block, ok := p.acquireBlockSlow(sc, space, slot)
	if !ok {
		return 0, false
	}
	cell, ok := block.AllocCell()
	if !ok {
		return 0, false
	}
	slot.list.incUsedBytes(sc.Bytes())
	return cell, true
}

// FreeCell returns cell to its owning block, which may not be p:
// spec.md §4.9's deallocation path steps 2-3. If the block belongs to
// another pool (it was previously flushed to the global pool, or was
// always someone else's), the owner's lock is taken instead, re-reading
// owner after acquisition to detect a concurrent flush.
func (p *Pool) FreeCell(cell mk.Address, space *HoardSpace) {
	block := Containing(cell)
	owner := block.Owner()
	slot := &owner.blocks[block.SizeClass()]
	slot.mu.Lock()
	for !block.IsOwnedBy(owner) {
		slot.mu.Unlock()
		runtime.Gosched()
		owner = block.Owner()
		slot = &owner.blocks[block.SizeClass()]
		slot.mu.Lock()
	}
	owner.freeCellLocked(block, cell, space, slot)
	slot.mu.Unlock()
}

// freeCellLocked runs the actual free/release/move-front/flush logic
// for block, which p owns and whose size class's lock slot is held.
func (p *Pool) freeCellLocked(block SuperBlock, cell mk.Address, space *HoardSpace, slot *sizeClassSlot) {
	block.FreeCell(cell)
	slot.list.decUsedBytes(block.SizeClass().Bytes())
	if block.IsEmpty() {
		slot.list.remove(block, true)
		space.releaseBlock(block)
	} else {
		slot.list.moveToFront(block, false)
	}
	if !p.global && slot.list.shouldFlush(block.SizeClass().LogBytes()) {
		p.flushMostlyEmptyBlock(block.SizeClass(), space, slot)
	}
}

// flushMostlyEmptyBlock implements spec.md §4.9's flush heuristic: pop
// the emptiest available block and hand it to the global pool.
func (p *Pool) flushMostlyEmptyBlock(sc sizeclass.Class, space *HoardSpace, slot *sizeClassSlot) {
	if block, ok := slot.list.popMostlyEmptyBlock(); ok {
		space.flushBlock(sc, block)
	}
}

// FlushAll empties every size class this (necessarily local, not
// global) pool holds into the global pool, spec.md §5's thread-exit
// step 2: "flush every local block to the global pool". Called once,
// from a Mutator's teardown; never concurrently with the pool's own
// allocation path, since the owning thread is exiting.
func (p *Pool) FlushAll(space *HoardSpace) {
	for sc := sizeclass.Class(0); int(sc) < numSizeClasses; sc++ {
		slot := &p.blocks[sc]
		slot.mu.Lock()
		blocks := slot.list.popAll()
		slot.mu.Unlock()
		for _, block := range blocks {
			space.flushBlock(sc, block)
		}
	}
}
