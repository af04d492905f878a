// Package bump implements the reference bump-allocator plan, spec.md
// §4.7: a single immortal space, one BumpAllocator per mutator,
// dealloc a permanent no-op. Grounded on original_source/bump/src/lib.rs.
package bump

import (
	"sync"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/space"
)

// immortalSpace is the only space this plan uses.
const immortalSpace = mk.DefaultSpace

// Bump is the process-wide bump plan singleton.
type Bump struct {
	immortal *space.ImmortalSpace
}

var (
	once sync.Once
	the  *Bump
)

// Get returns the process-wide Bump plan, constructing it on first use.
func Get() *Bump {
	once.Do(func() {
		the = &Bump{immortal: space.NewImmortalSpace(immortalSpace)}
	})
	return the
}

// GetLayout recovers ptr's Layout, spec.md §3's Plan.get_layout.
func (p *Bump) GetLayout(ptr mk.Address) mk.Layout {
	return space.BumpGetLayout(ptr)
}

// Mutator is the bump plan's per-thread state: a single bump cursor
// over the plan's immortal space.
type Mutator struct {
	bump *space.BumpAllocator
}

// NewMutator creates a mutator bound to the process-wide Bump plan.
func NewMutator() *Mutator {
	return &Mutator{bump: space.NewBumpAllocator(Get().immortal)}
}

func (m *Mutator) Alloc(layout mk.Layout) (mk.Address, bool)       { return m.bump.Alloc(layout) }
func (m *Mutator) AllocZeroed(layout mk.Layout) (mk.Address, bool) { return m.bump.AllocZeroed(layout) }

// Dealloc is a no-op: the immortal space never reclaims memory.
func (m *Mutator) Dealloc(mk.Address) {}

func (m *Mutator) GetLayout(ptr mk.Address) mk.Layout { return space.BumpGetLayout(ptr) }

func (m *Mutator) Realloc(ptr mk.Address, newLayout mk.Layout) (mk.Address, bool) {
	return mk.Realloc(m, ptr, newLayout)
}
