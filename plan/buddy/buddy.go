// Package buddy implements the buddy-allocator plan, spec.md §4.8: one
// FreeListSpace for small objects (buddy/bitmap back-end) plus one
// LargeObjectSpace fallback above its 2 MiB threshold. Grounded on
// original_source/buddy/src/lib.rs.
package buddy

import (
	"sync"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/space"
)

const (
	freeListSpace    = mk.DefaultSpace
	largeObjectSpace = mk.LargeObjectSpaceID
)

// Buddy is the process-wide buddy plan singleton.
type Buddy struct {
	freeList    *space.FreeListSpace
	largeObject *space.LargeObjectSpace
}

var (
	once sync.Once
	the  *Buddy
)

// Get returns the process-wide Buddy plan, constructing it on first
// use.
func Get() *Buddy {
	once.Do(func() {
		the = &Buddy{
			freeList:    space.NewFreeListSpace(freeListSpace),
			largeObject: space.NewLargeObjectSpace(largeObjectSpace),
		}
	})
	return the
}

// GetLayout recovers ptr's Layout from whichever of the plan's two
// spaces owns it, spec.md §3's Plan.get_layout.
func (p *Buddy) GetLayout(ptr mk.Address) mk.Layout {
	if freeListSpace.Contains(ptr) {
		return space.FreeListGetLayout(ptr)
	}
	return space.LargeObjectGetLayout(ptr)
}

// Mutator is the buddy plan's per-thread state.
type Mutator struct {
	freeList *space.FreeListAllocator
	los      *space.LargeObjectAllocator
}

// NewMutator creates a mutator bound to the process-wide Buddy plan.
func NewMutator() *Mutator {
	plan := Get()
	return &Mutator{
		freeList: space.NewFreeListAllocator(plan.freeList),
		los:      space.NewLargeObjectAllocator(plan.largeObject),
	}
}

// canAllocateSmall reports whether layout fits the free-list space's
// threshold (spec.md §4.8: "Allocations larger than the threshold go
// to the LOS").
func canAllocateSmall(layout mk.Layout) bool {
	return layout.PadToAlign().Size <= space.MaxAllocationSize
}

func (m *Mutator) Alloc(layout mk.Layout) (mk.Address, bool) {
	if canAllocateSmall(layout) {
		return m.freeList.Alloc(layout)
	}
	return m.los.Alloc(layout)
}

func (m *Mutator) AllocZeroed(layout mk.Layout) (mk.Address, bool) {
	if canAllocateSmall(layout) {
		return m.freeList.AllocZeroed(layout)
	}
	return m.los.AllocZeroed(layout)
}

func (m *Mutator) Dealloc(ptr mk.Address) {
	if freeListSpace.Contains(ptr) {
		m.freeList.Dealloc(ptr)
	} else {
		m.los.Dealloc(ptr)
	}
}

func (m *Mutator) GetLayout(ptr mk.Address) mk.Layout {
	if freeListSpace.Contains(ptr) {
		return space.FreeListGetLayout(ptr)
	}
	return space.LargeObjectGetLayout(ptr)
}

func (m *Mutator) Realloc(ptr mk.Address, newLayout mk.Layout) (mk.Address, bool) {
	return mk.Realloc(m, ptr, newLayout)
}
