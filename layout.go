package mallockit

// Layout describes the size and alignment of a memory block, the Go
// rendition of Rust's std::alloc::Layout referenced throughout spec.md
// (§4.7, §4.9, §9) without ever being spelled out as a concrete type.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout builds a Layout, rounding align up to at least 1.
func NewLayout(size, align uintptr) Layout {
	if align == 0 {
		align = 1
	}
	return Layout{Size: size, Align: align}
}

// PadToAlign returns a layout whose size has been rounded up to a
// multiple of its own alignment, as LLVM/Rust layouts require.
func (l Layout) PadToAlign() Layout {
	return Layout{Size: alignUp(l.Size, l.Align), Align: l.Align}
}

func alignUp(n, align uintptr) uintptr {
	mask := align - 1
	return (n + mask) &^ mask
}
