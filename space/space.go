// Package space implements the Space abstraction spec.md §3 builds
// plans on top of: a named 2^41-byte range of the heap, a page
// resource to grow and shrink it, and (depending on the concrete
// space) a small-object allocator that carves allocations out of the
// pages it acquires.
package space

import (
	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/pageresource"
)

// Space is the common surface every concrete space (Immortal,
// LargeObject, FreeList) implements, spec.md §3's Space trait.
type Space interface {
	Id() mk.SpaceId
	PageResource() pageresource.PageResource
	Contains(addr mk.Address) bool
	CommittedSize() uintptr
}

// Allocator is the per-mutator small-object allocator surface every
// plan's concrete allocator implements, spec.md §3's Allocator trait.
type Allocator interface {
	GetLayout(ptr mk.Address) mk.Layout
	Alloc(layout mk.Layout) (mk.Address, bool)
	AllocZeroed(layout mk.Layout) (mk.Address, bool)
	Dealloc(ptr mk.Address)
}

// base implements the parts of Space every concrete space shares.
type base struct {
	id mk.SpaceId
	pr pageresource.PageResource
}

func (b *base) Id() mk.SpaceId                          { return b.id }
func (b *base) PageResource() pageresource.PageResource { return b.pr }
func (b *base) Contains(addr mk.Address) bool            { return b.id.Contains(addr) }
func (b *base) CommittedSize() uintptr                   { return b.pr.ReservedBytes() }

// zeroBytes fills [ptr, ptr+size) with zero, used by AllocZeroed
// implementations across every concrete allocator.
func zeroBytes(ptr mk.Address, size uintptr) {
	mk.ZeroMemory(ptr, size)
}
