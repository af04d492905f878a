package mallockit

import "sync/atomic"

// BitField describes a span of bits within a machine word, grounded on
// original_source/mallockit/src/util/bits.rs. It is used by the page
// registry (pagetable package) to pack present/is-page-table/run-length
// flags into a single atomic word per entry.
type BitField struct {
	Bits  uint
	Shift uint
}

// GetBitField extracts field from the current value of w.
func GetBitField(w *atomic.Uintptr, field BitField) uintptr {
	v := w.Load()
	return (v >> field.Shift) & ((1 << field.Bits) - 1)
}

// Set overwrites field within w's current value, leaving the rest of
// the word unchanged. Not atomic with respect to concurrent Set calls
// on other fields of the same word; callers serialize those with a
// higher-level lock, matching the Rust original's "relaxed, caller
// locks" discipline for the page table.
func SetBitField(w *atomic.Uintptr, field BitField, value uintptr) {
	old := w.Load()
	mask := ((uintptr(1) << field.Bits) - 1) << field.Shift
	next := (old &^ mask) | ((value << field.Shift) & mask)
	w.Store(next)
}

// DeltaBitField adds delta (which may be negative) to field and returns
// the new value, used by the page registry's used-entries counters.
func DeltaBitField(w *atomic.Uintptr, field BitField, delta int) uintptr {
	cur := GetBitField(w, field)
	next := uintptr(int(cur) + delta)
	SetBitField(w, field, next)
	return next
}
