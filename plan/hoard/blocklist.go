package hoard

// groupCount is the number of fullness-group buckets a BlockList
// sorts its blocks into: <25%, <50%, <75%, <100%, and full (spec.md
// §4.9's "Fullness groups"). Grounded on
// original_source/hoard/src/pool.rs's BlockList::GROUPS.
const groupCount = 5

// emptinessClasses is the granularity the flush heuristic measures
// occupancy at (spec.md §4.9's "Flush heuristic").
const emptinessClasses = 8

// blockList is one size class's collection of superblocks: a sticky
// "cache" block for the hot repeated-allocation path plus groupCount
// fullness-group lists. Every method assumes the caller already holds
// the owning Pool's per-size-class lock. Grounded on
// original_source/hoard/src/pool.rs's BlockList.
type blockList struct {
	cache      SuperBlock
	groups     [groupCount]SuperBlock
	usedBytes  uintptr
	totalBytes uintptr
}

func (l *blockList) incUsedBytes(n uintptr)  { l.usedBytes += n }
func (l *blockList) decUsedBytes(n uintptr)  { l.usedBytes -= n }
func (l *blockList) incTotalBytes(n uintptr) { l.totalBytes += n }
func (l *blockList) decTotalBytes(n uintptr) { l.totalBytes -= n }

// shouldFlush implements spec.md §4.9's flush heuristic:
// used + 2*BLOCK_BYTES/size < total AND 8*used < 7*total (the
// EMPTINESS_CLASSES=8 version of that inequality).
func (l *blockList) shouldFlush(logObjSize uint) bool {
	u, a := l.usedBytes, l.totalBytes
	return u+(2*blockBytes)>>logObjSize < a &&
		emptinessClasses*u < (emptinessClasses-1)*a
}

// groupFor computes which fullness group block belongs in, optionally
// accounting for a cell about to be allocated from it (spec.md §4.9's
// "Fullness groups" formula).
func groupFor(block SuperBlock, allocating bool) uint8 {
	u := block.UsedBytes()
	if allocating {
		u += block.SizeClass().Bytes()
	}
	u += alignUp(headerBytes, block.SizeClass().Bytes())
	return uint8((u << 2) >> blockLogBytes)
}

// push inserts block at the head of its fullness group (or, if
// allocating and a cache slot is already occupied, evicts the current
// cache block into its group first and takes its place).
func (l *blockList) push(block SuperBlock, allocating, updateStats bool) {
	if allocating && !l.cache.IsZero() {
		cache := l.cache
		l.cache = block
		block.SetGroup(0xFF)
		block = cache
	}
	group := groupFor(block, allocating)
	block.SetGroup(group)
	block.SetNext(l.groups[group])
	block.SetPrev(0)
	if head := l.groups[group]; !head.IsZero() {
		head.SetPrev(block)
	}
	l.groups[group] = block
	if updateStats {
		l.incUsedBytes(block.UsedBytes())
		l.incTotalBytes(blockBytes)
	}
}

// findSlow evicts the current cache block (if any) into its group,
// then returns the front of the fullest non-full group.
func (l *blockList) findSlow() (SuperBlock, bool) {
	if !l.cache.IsZero() {
		block := l.cache
		l.cache = 0
		l.push(block, false, false)
	}
	for i := groupCount - 2; i >= 0; i-- {
		if block := l.groups[i]; !block.IsZero() {
			l.remove(block, false)
			l.cache = block
			block.SetGroup(0xFF)
			return block, true
		}
	}
	return 0, false
}

// find returns a non-full block to allocate from, preferring the
// sticky cache slot.
func (l *blockList) find() (SuperBlock, bool) {
	if !l.cache.IsZero() && !l.cache.IsFull() {
		return l.cache, true
	}
	return l.findSlow()
}

// pop removes and returns the cache block if there is one, else the
// front of the emptiest non-full group (used when pulling a block out
// of the global pool for a requesting local pool).
func (l *blockList) pop() (SuperBlock, bool) {
	if !l.cache.IsZero() {
		block := l.cache
		l.cache = 0
		return block, true
	}
	for i := 0; i < groupCount-1; i++ {
		if block := l.groups[i]; !block.IsZero() {
			l.groups[i] = block.Next()
			if next := block.Next(); !next.IsZero() {
				next.SetPrev(0)
			}
			l.decUsedBytes(block.UsedBytes())
			l.decTotalBytes(blockBytes)
			return block, true
		}
	}
	return 0, false
}

// remove unlinks block from wherever it currently sits (cache slot or
// a group list).
func (l *blockList) remove(block SuperBlock, updateStats bool) {
	if l.cache == block {
		l.cache = 0
		if updateStats {
			l.decUsedBytes(block.UsedBytes())
			l.decTotalBytes(blockBytes)
		}
		return
	}
	if l.groups[block.Group()] == block {
		l.groups[block.Group()] = block.Next()
	}
	if prev := block.Prev(); !prev.IsZero() {
		prev.SetNext(block.Next())
	}
	if next := block.Next(); !next.IsZero() {
		next.SetPrev(block.Prev())
	}
	if updateStats {
		l.decUsedBytes(block.UsedBytes())
		l.decTotalBytes(blockBytes)
	}
}

// moveToFront re-homes block into the fullness group its current
// occupancy now calls for, a no-op if it is already there.
func (l *blockList) moveToFront(block SuperBlock, allocating bool) {
	if l.cache == block {
		return
	}
	group := groupFor(block, allocating)
	if l.groups[group] == block || group == block.Group() {
		return
	}
	if l.groups[block.Group()] == block {
		l.groups[block.Group()] = block.Next()
	}
	if prev := block.Prev(); !prev.IsZero() {
		prev.SetNext(block.Next())
	}
	if next := block.Next(); !next.IsZero() {
		next.SetPrev(block.Prev())
	}
	block.SetGroup(group)
	block.SetNext(l.groups[group])
	block.SetPrev(0)
	if head := l.groups[group]; !head.IsZero() {
		head.SetPrev(block)
	}
	l.groups[group] = block
}

// popAll removes and returns every block this list holds — the cache
// slot and every fullness group, full blocks included — resetting its
// stats to empty. Used to flush a local pool's entire size class to
// the global pool on thread exit.
func (l *blockList) popAll() []SuperBlock {
	var blocks []SuperBlock
	if !l.cache.IsZero() {
		blocks = append(blocks, l.cache)
		l.cache = 0
	}
	for i := 0; i < groupCount; i++ {
		for block := l.groups[i]; !block.IsZero(); {
			next := block.Next()
			blocks = append(blocks, block)
			block = next
		}
		l.groups[i] = 0
	}
	l.usedBytes = 0
	l.totalBytes = 0
	return blocks
}

// popMostlyEmptyBlock removes and returns a block from one of the
// emptier half of the fullness groups, used by the flush heuristic to
// pick a candidate to hand back to the global pool.
func (l *blockList) popMostlyEmptyBlock() (SuperBlock, bool) {
	for i := 0; i < groupCount/2; i++ {
		if block := l.groups[i]; !block.IsZero() {
			l.groups[i] = block.Next()
			if next := block.Next(); !next.IsZero() {
				next.SetPrev(0)
			}
			l.decUsedBytes(block.UsedBytes())
			l.decTotalBytes(blockBytes)
			return block, true
		}
	}
	return 0, false
}
