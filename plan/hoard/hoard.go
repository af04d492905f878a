// Package hoard implements the Hoard plan, spec.md §4.9: a per-thread
// quick-cache backed by a per-thread local Pool, a process-wide global
// Pool blocks get flushed to and pulled from, and a large-object
// fallback above MaxAllocationSize. Grounded on
// original_source/hoard/src/lib.rs and hoard_space.rs.
package hoard

import (
	"sync"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
	"github.com/cznic/mallockit/space"
	"github.com/cznic/mallockit/tlab"
)

const (
	hoardSpaceID     = mk.DefaultSpace
	largeObjectSpace = mk.LargeObjectSpaceID
)

// localHeapThreshold bounds how many bytes of free cells a mutator's
// TLAB may hold (spec.md §4.9's "LOCAL_HEAP_THRESHOLD"): Dealloc caches
// a small cell only while the TLAB's total stays within it, and hands
// the cell to the local Pool otherwise.
const localHeapThreshold = 16 * 1024 * 1024

// largestSmallObject is the largest size the thread-local quick cache
// (as opposed to the local Pool) ever serves directly (spec.md §4.9).
const largestSmallObject = 1024

// maxTLABClass is the size class covering largestSmallObject.
var maxTLABClass = sizeclass.FromBytes(largestSmallObject)

// Hoard is the process-wide plan singleton.
type Hoard struct {
	hoardSpace  *HoardSpace
	largeObject *space.LargeObjectSpace
}

var (
	once sync.Once
	the  *Hoard
)

// Get returns the process-wide Hoard plan, constructing it on first
// use.
func Get() *Hoard {
	once.Do(func() {
		the = &Hoard{
			hoardSpace:  NewHoardSpace(hoardSpaceID),
			largeObject: space.NewLargeObjectSpace(largeObjectSpace),
		}
	})
	return the
}

// GetLayout recovers ptr's Layout from whichever of the plan's two
// spaces owns it.
func (p *Hoard) GetLayout(ptr mk.Address) mk.Layout {
	if hoardSpaceID.Contains(ptr) {
		return p.hoardSpace.GetLayout(ptr)
	}
	return space.LargeObjectGetLayout(ptr)
}

// Mutator is the Hoard plan's per-thread state: a quick-cache TLAB, a
// local Pool, and a large-object allocator, matching
// original_source/hoard/src/lib.rs's HoardMutator.
type Mutator struct {
	plan  *Hoard
	tlab  *tlab.DiscreteTLAB
	local *Pool
	los   *space.LargeObjectAllocator
}

// NewMutator creates a mutator bound to the process-wide Hoard plan.
func NewMutator() *Mutator {
	plan := Get()
	return &Mutator{
		plan:  plan,
		tlab:  tlab.New(maxTLABClass),
		local: NewPool(false),
		los:   space.NewLargeObjectAllocator(plan.largeObject),
	}
}

// Alloc implements spec.md §4.9's allocation path: the TLAB quick
// cache for sizes up to largestSmallObject, then the local Pool, then
// the large-object fallback.
func (m *Mutator) Alloc(layout mk.Layout) (mk.Address, bool) {
	if !m.plan.hoardSpace.CanAllocate(layout) {
		return m.los.Alloc(layout)
	}
	sc := sizeclass.FromLayout(layout)
	if sc <= maxTLABClass {
		if cell, ok := m.tlab.Pop(sc); ok {
			return cell, true
		}
	}
	return m.local.AllocCell(sc, m.plan.hoardSpace)
}

// AllocZeroed allocates and zero-fills layout.Size bytes.
func (m *Mutator) AllocZeroed(layout mk.Layout) (mk.Address, bool) {
	ptr, ok := m.Alloc(layout)
	if ok {
		mk.ZeroMemory(ptr, layout.PadToAlign().Size)
	}
	return ptr, ok
}

// Dealloc returns ptr to the TLAB if it is small enough to be cached
// there and the TLAB's cached bytes stay within localHeapThreshold,
// otherwise directly to the owning block's pool, or to the
// large-object space if it lies outside the Hoard space entirely.
func (m *Mutator) Dealloc(ptr mk.Address) {
	if !hoardSpaceID.Contains(ptr) {
		m.los.Dealloc(ptr)
		return
	}
	sc := Containing(ptr).SizeClass()
	if sc <= maxTLABClass && m.tlab.FreeBytes()+sc.Bytes() <= localHeapThreshold {
		m.tlab.Push(sc, ptr)
		return
	}
	m.local.FreeCell(ptr, m.plan.hoardSpace)
}

// GetLayout recovers ptr's Layout.
func (m *Mutator) GetLayout(ptr mk.Address) mk.Layout {
	return m.plan.GetLayout(ptr)
}

// Realloc delegates to the shared grow-in-place-or-copy default.
func (m *Mutator) Realloc(ptr mk.Address, newLayout mk.Layout) (mk.Address, bool) {
	return mk.Realloc(m, ptr, newLayout)
}

// Close runs spec.md §5's thread-exit teardown: drain the TLAB's
// quick-cache cells back into the local pool (step 1), then flush
// every remaining local block to the global pool (step 2). Step 3,
// "return unmapped large-object pages via the LOS", is a no-op for
// this plan: space.LargeObjectAllocator keeps no per-thread state of
// its own, every large allocation already lives directly in the
// shared LargeObjectSpace with nothing cached locally to give back.
// Called from tls's registered teardown hook, at most once per
// Mutator, never concurrently with any other method on m.
func (m *Mutator) Close() {
	m.tlab.Clear(func(_ sizeclass.Class, cell mk.Address) {
		m.local.FreeCell(cell, m.plan.hoardSpace)
	})
	m.local.FlushAll(m.plan.hoardSpace)
}
