package freelist

import mk "github.com/cznic/mallockit"

// cellHeader is the 32-byte header intrusive free-list cells carry,
// grounded on original_source's intrusive_freelist.rs Cell layout:
// size, an owner tag (used to decide whether two adjacent free cells
// may be coalesced), and the doubly-linked free-list pointers.
type cellHeader struct {
	size  uintptr
	owner uintptr
	prev  mk.Address
	next  mk.Address
}

const cellHeaderBytes = 32 // 4 words on a 64-bit machine

func readHeader(addr mk.Address) cellHeader {
	return cellHeader{
		size:  uintptr(loadAddr(addr)),
		owner: uintptr(loadAddr(addr.Add(8))),
		prev:  loadAddr(addr.Add(16)),
		next:  loadAddr(addr.Add(24)),
	}
}

func writeHeader(addr mk.Address, h cellHeader) {
	storeAddr(addr, mk.Address(h.size))
	storeAddr(addr.Add(8), mk.Address(h.owner))
	storeAddr(addr.Add(16), h.prev)
	storeAddr(addr.Add(24), h.next)
}

// Intrusive is a first-fit free list whose cells carry their own
// size/owner/links header rather than being tracked through a side
// bitmap (spec.md §4.4's "unaligned" variant, for allocators that hand
// out odd sizes a buddy scheme would waste). A cell immediately
// following a freed cell is coalesced into it only when both share the
// same owner tag, so two unrelated sub-allocators sharing one backing
// region never merge into each other's cells.
type Intrusive struct {
	head  mk.Address
	count int
}

// NewIntrusive returns an empty intrusive free list.
func NewIntrusive() *Intrusive { return &Intrusive{} }

// AddCell adds a free cell of the given size and owner tag at addr,
// without attempting to coalesce with its neighbors. Used to seed a
// freshly mapped region.
func (f *Intrusive) AddCell(addr mk.Address, size uintptr, owner uintptr) {
	f.insertSorted(addr, size, owner)
}

func (f *Intrusive) insertSorted(addr mk.Address, size, owner uintptr) {
	h := cellHeader{size: size, owner: owner}
	if f.head == 0 || addr < f.head {
		h.next = f.head
		if f.head != 0 {
			old := readHeader(f.head)
			old.prev = addr
			writeHeader(f.head, old)
		}
		h.prev = 0
		writeHeader(addr, h)
		f.head = addr
		f.count++
		return
	}
	cur := f.head
	for {
		curH := readHeader(cur)
		if curH.next == 0 || curH.next > addr {
			h.prev = cur
			h.next = curH.next
			writeHeader(addr, h)
			if curH.next != 0 {
				next := readHeader(curH.next)
				next.prev = addr
				writeHeader(curH.next, next)
			}
			curH.next = addr
			writeHeader(cur, curH)
			f.count++
			return
		}
		cur = curH.next
	}
}

func (f *Intrusive) unlink(addr mk.Address, h cellHeader) {
	if h.prev == 0 {
		f.head = h.next
	} else {
		p := readHeader(h.prev)
		p.next = h.next
		writeHeader(h.prev, p)
	}
	if h.next != 0 {
		n := readHeader(h.next)
		n.prev = h.prev
		writeHeader(h.next, n)
	}
	f.count--
}

// Allocate finds the first free cell of at least size bytes, owned by
// owner, splitting off and returning any excess back to the list as a
// new free cell (spec.md §4.4's "first-fit search"). It reports
// (ZeroAddress, false) if no cell is large enough.
func (f *Intrusive) Allocate(size uintptr, owner uintptr) (mk.Address, bool) {
	if size < cellHeaderBytes {
		size = cellHeaderBytes
	}
	for cur := f.head; cur != 0; {
		h := readHeader(cur)
		next := h.next
		if h.owner == owner && h.size >= size {
			f.unlink(cur, h)
			if remain := h.size - size; remain >= cellHeaderBytes {
				f.insertSorted(cur.Add(size), remain, owner)
			} else {
				size = h.size
			}
			return cur, true
		}
		cur = next
	}
	return 0, false
}

// Release returns a previously allocated cell to the free list,
// coalescing with an immediately following free cell of the same owner
// (spec.md §4.4: "coalesce only with the immediately-higher free cell
// of the same owner"). No merge with a preceding free cell is done;
// finding the following cell and re-inserting the result each walk
// the list from its head, linear in the number of free cells.
func (f *Intrusive) Release(addr mk.Address, size, owner uintptr) {
	if size < cellHeaderBytes {
		size = cellHeaderBytes
	}
	following := addr.Add(size)
	for cur := f.head; cur != 0; {
		h := readHeader(cur)
		if cur == following && h.owner == owner {
			f.unlink(cur, h)
			size += h.size
			break
		}
		if cur > following {
			break
		}
		cur = h.next
	}
	f.insertSorted(addr, size, owner)
}

// Count returns the number of free cells currently tracked.
func (f *Intrusive) Count() int { return f.count }
