// Package pagetable implements the lazy four-level radix tree that
// maps any mapped 4 KiB page to the length (in pages) of the run it
// starts, spec.md §4.3 "Page registry". It is the only way the
// large-object plan and malloc_usable_size can recover an extent's
// size from a bare pointer.
package pagetable

import (
	"sync"
	"sync/atomic"
	"unsafe"

	mk "github.com/cznic/mallockit"
)

func tablePtr(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) }
func tableAddr(t *table) uintptr           { return uintptr(unsafe.Pointer(t)) }

// entry packs present/is-page-table/run-length/used-entries into one
// word, the Go rendition of original_source's PageTableEntry bit
// fields (mallockit/src/space/page_table.rs). The Rust original
// updates these fields with per-word atomics for lock-free reads; this
// rendition instead serializes all mutation and lookup through the
// registry's single root RWMutex (spec.md §5: "protected by a
// reader-writer lock at its root"), so a plain atomic.Uintptr is
// enough to store the packed word without torn reads.
type entry struct {
	word atomic.Uintptr
}

var (
	presentField     = mk.BitField{Bits: 1, Shift: 63}
	isPageTableField = mk.BitField{Bits: 1, Shift: 62}
	usedEntriesField = mk.BitField{Bits: 10, Shift: 0}
	runLengthField   = mk.BitField{Bits: 40, Shift: 0}
)

func (e *entry) present() bool      { return mk.GetBitField(&e.word, presentField) != 0 }
func (e *entry) isPageTable() bool  { return mk.GetBitField(&e.word, isPageTableField) != 0 }
func (e *entry) usedEntries() int   { return int(mk.GetBitField(&e.word, usedEntriesField)) }
func (e *entry) runLength() int     { return int(mk.GetBitField(&e.word, runLengthField)) }
func (e *entry) clear()             { e.word.Store(0) }
func (e *entry) childTable() *table { return (*table)(tablePtr(e.childPtr())) }

func (e *entry) childPtr() uintptr {
	return e.word.Load() &^ ((uintptr(1) << 63) | (uintptr(1) << 62) | ((uintptr(1) << usedEntriesField.Bits) - 1))
}

func (e *entry) setChildTable(t *table) {
	word := uintptr(0)
	word = setField(word, presentField, 1)
	word = setField(word, isPageTableField, 1)
	e.word.Store(word | uintptr(tableAddr(t)))
}

func (e *entry) setLeaf(runLength int) {
	word := uintptr(0)
	word = setField(word, presentField, 1)
	if runLength > 0 {
		word = setField(word, runLengthField, uintptr(runLength))
	}
	e.word.Store(word)
}

func (e *entry) deltaUsedEntries(delta int) int {
	return int(mk.DeltaBitField(&e.word, usedEntriesField, delta))
}

func setField(word uintptr, f mk.BitField, value uintptr) uintptr {
	mask := ((uintptr(1) << f.Bits) - 1) << f.Shift
	return (word &^ mask) | ((value << f.Shift) & mask)
}

// table is one level of the radix tree: 512 entries, indexed by 9 bits
// of the address.
type table struct {
	entries [512]entry
}

const (
	l1Shift = 12
	l2Shift = l1Shift + 9
	l3Shift = l2Shift + 9
	l4Shift = l3Shift + 9
)

func index(addr mk.Address, shift uint) int {
	return int((uintptr(addr) >> shift) & 0x1FF)
}

// Registry is the four-level radix tree, one instance per process
// (spec.md keeps a single PAGE_REGISTRY static; callers use the
// package-level Default for that role, and may construct their own
// for tests).
type Registry struct {
	mu   sync.RWMutex
	root *table
}

// New returns an empty page registry.
func New() *Registry {
	return &Registry{root: newTable()}
}

// Default is the process-wide page registry singleton every space's
// page resource shares.
var Default = New()

func newTable() *table {
	addr := mk.MetaAlloc(512*8, 4096)
	t := (*table)(tablePtr(uintptr(addr)))
	*t = table{}
	return t
}

// InsertPages marks every 4 KiB page within [start, start+numPages) as
// present, recording the run length on the first page only, spec.md
// §4.3 "insert_pages".
func (r *Registry) InsertPages(start mk.Address, numPages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < numPages; i++ {
		addr := start.Add(uintptr(i) << l1Shift)
		rl := 0
		if i == 0 {
			rl = numPages
		}
		r.insertOne(addr, rl)
	}
}

func (r *Registry) insertOne(addr mk.Address, runLength int) {
	l4 := r.root
	l3e := &l4.entries[index(addr, l4Shift)]
	l3 := r.getOrCreate(l3e)

	l2e := &l3.entries[index(addr, l3Shift)]
	l2, created := r.getOrCreateTracked(l2e)
	if created {
		l3e.deltaUsedEntries(1)
	}

	l1e := &l2.entries[index(addr, l2Shift)]
	l1, created := r.getOrCreateTracked(l1e)
	if created {
		l2e.deltaUsedEntries(1)
	}

	leaf := &l1.entries[index(addr, l1Shift)]
	wasPresent := leaf.present()
	leaf.setLeaf(runLength)
	if !wasPresent {
		l1e.deltaUsedEntries(1)
	}
}

// getOrCreate returns e's child table, allocating one if e is not yet
// a page-table entry. Used where the caller does not need to know
// whether a fresh table was allocated (the top level, whose used-entry
// counter is tracked by its own parent, the registry root, which has
// none).
func (r *Registry) getOrCreate(e *entry) *table {
	t, _ := r.getOrCreateTracked(e)
	return t
}

// getOrCreateTracked is like getOrCreate but also reports whether a
// fresh child table was allocated, so the caller can bump its own
// used-entries counter exactly once per newly created grandchild.
func (r *Registry) getOrCreateTracked(e *entry) (*table, bool) {
	if e.present() && e.isPageTable() {
		return e.childTable(), false
	}
	t := newTable()
	e.setChildTable(t)
	return t, true
}

// DeletePages clears every page in [start, start+numPages) and frees
// any sub-table whose used-entries counter drops to zero, spec.md
// §4.3 "delete_pages".
func (r *Registry) DeletePages(start mk.Address, numPages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < numPages; i++ {
		r.deleteOne(start.Add(uintptr(i) << l1Shift))
	}
}

func (r *Registry) deleteOne(addr mk.Address) {
	l4 := r.root
	l3e := &l4.entries[index(addr, l4Shift)]
	if !l3e.present() {
		return
	}
	l3 := l3e.childTable()
	l2e := &l3.entries[index(addr, l3Shift)]
	if !l2e.present() {
		return
	}
	l2 := l2e.childTable()
	l1e := &l2.entries[index(addr, l2Shift)]
	if !l1e.present() {
		return
	}
	l1 := l1e.childTable()
	leaf := &l1.entries[index(addr, l1Shift)]
	leaf.clear()
	if l1e.deltaUsedEntries(-1) == 0 {
		l1e.clear()
		if l2e.deltaUsedEntries(-1) == 0 {
			l2e.clear()
			l3e.deltaUsedEntries(-1)
		}
	}
}

// GetContiguousPages returns the run length recorded on the first page
// of the extent starting at start, or 0 if start is not the start of a
// mapped run, spec.md §4.3 "get_contiguous_pages".
func (r *Registry) GetContiguousPages(start mk.Address) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l4 := r.root
	l3e := &l4.entries[index(start, l4Shift)]
	if !l3e.present() || !l3e.isPageTable() {
		return 0
	}
	l3 := l3e.childTable()
	l2e := &l3.entries[index(start, l3Shift)]
	if !l2e.present() || !l2e.isPageTable() {
		return 0
	}
	l2 := l2e.childTable()
	l1e := &l2.entries[index(start, l2Shift)]
	if !l1e.present() || !l1e.isPageTable() {
		return 0
	}
	l1 := l1e.childTable()
	leaf := &l1.entries[index(start, l1Shift)]
	if !leaf.present() {
		return 0
	}
	return leaf.runLength()
}

// IsPresent reports whether the 4 KiB page containing addr is marked
// present.
func (r *Registry) IsPresent(addr mk.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l4 := r.root
	l3e := &l4.entries[index(addr, l4Shift)]
	if !l3e.present() || !l3e.isPageTable() {
		return false
	}
	l3 := l3e.childTable()
	l2e := &l3.entries[index(addr, l3Shift)]
	if !l2e.present() || !l2e.isPageTable() {
		return false
	}
	l2 := l2e.childTable()
	l1e := &l2.entries[index(addr, l2Shift)]
	if !l1e.present() || !l1e.isPageTable() {
		return false
	}
	l1 := l1e.childTable()
	return l1.entries[index(addr, l1Shift)].present()
}
