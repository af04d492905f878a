package mallockit

// Mutator is the per-thread allocator surface every plan's concrete
// mutator implements, spec.md §3's Mutator entity and the Go rendition
// of original_source/mallockit/src/mutator.rs's Mutator trait. Unlike
// the Rust trait, Realloc has no default-method sugar to fall back on,
// so every plan's Realloc implementation simply calls Realloc (below).
type Mutator interface {
	Alloc(layout Layout) (Address, bool)
	AllocZeroed(layout Layout) (Address, bool)
	Dealloc(ptr Address)
	Realloc(ptr Address, newLayout Layout) (Address, bool)
	GetLayout(ptr Address) Layout
}

// Plan is the process-wide allocator state every plan's singleton
// implements, spec.md §3's Plan entity and the Rust original's Plan
// trait (its Mutator associated type has no Go equivalent; each plan
// package simply names its own concrete mutator type).
type Plan interface {
	GetLayout(ptr Address) Layout
}

// Realloc implements the Mutator entity's shared realloc behavior
// (spec.md §4.6: "if old layout already satisfies n, return p; else
// alloc, memcpy min(old, new), free old"), the Go rendition of the
// Rust original's Mutator::realloc default trait method. Go interfaces
// have no default methods, so every plan's Mutator.Realloc delegates
// to this free function instead of repeating the logic.
func Realloc(m Mutator, ptr Address, newLayout Layout) (Address, bool) {
	old := m.GetLayout(ptr)
	if old.Size >= newLayout.Size && old.Align >= newLayout.Align {
		return ptr, true
	}
	newPtr, ok := m.Alloc(newLayout)
	if !ok {
		return 0, false
	}
	size := old.Size
	if newLayout.Size < size {
		size = newLayout.Size
	}
	CopyMemory(newPtr, ptr, size)
	m.Dealloc(ptr)
	return newPtr, true
}
