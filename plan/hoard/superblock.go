package hoard

import (
	"unsafe"

	mk "github.com/cznic/mallockit"
	"github.com/cznic/mallockit/sizeclass"
)

// blockLogBytes and blockBytes are the superblock's fixed size and
// alignment, spec.md §4.9: "Fixed 256 KiB, aligned to 256 KiB, so
// SuperBlock::containing(p) = p & ~(256K-1) is exact." Grounded on
// original_source/hoard/src/super_block.rs (LOG_BYTES = 18).
const (
	blockLogBytes = 18
	blockBytes    = uintptr(1) << blockLogBytes
)

// Header layout: 6 machine words (48 bytes) at the start of every
// superblock, matching the original's BlockMeta layout
// (bump_cursor/used_bytes packed into one word, prev, next,
// size_class+group packed into one word, head_cell, owner).
const (
	offBumpCursor = 0
	offUsedBytes  = 4
	offPrev       = 8
	offNext       = 16
	offSizeClass  = 24
	offGroup      = 25
	offHeadCell   = 32
	offOwner      = 40
	headerBytes   = 48
)

// SuperBlock is the address of a 256 KiB aligned block, the unit the
// Hoard plan's pools trade in. The zero value means "no block".
type SuperBlock mk.Address

// Containing returns the superblock whose range contains p.
func Containing(p mk.Address) SuperBlock {
	return SuperBlock(p.AlignDown(blockBytes))
}

func (b SuperBlock) addr() mk.Address { return mk.Address(b) }

// IsZero reports whether b is the "no block" sentinel.
func (b SuperBlock) IsZero() bool { return b.addr().IsZero() }

// Start returns the block's base address.
func (b SuperBlock) Start() mk.Address { return b.addr() }

func (b SuperBlock) bumpCursor() uint32     { return mk.Load32(b.addr().Add(offBumpCursor)) }
func (b SuperBlock) setBumpCursor(v uint32) { mk.Store32(b.addr().Add(offBumpCursor), v) }

// UsedBytes returns the number of bytes currently allocated out of b.
func (b SuperBlock) UsedBytes() uintptr { return uintptr(mk.Load32(b.addr().Add(offUsedBytes))) }
func (b SuperBlock) setUsedBytes(v uintptr) {
	mk.Store32(b.addr().Add(offUsedBytes), uint32(v))
}

// Prev and Next thread b through its owning BlockList's fullness-group
// list.
func (b SuperBlock) Prev() SuperBlock { return SuperBlock(mk.LoadAddress(b.addr().Add(offPrev))) }
func (b SuperBlock) SetPrev(p SuperBlock) {
	mk.StoreAddress(b.addr().Add(offPrev), p.addr())
}
func (b SuperBlock) Next() SuperBlock { return SuperBlock(mk.LoadAddress(b.addr().Add(offNext))) }
func (b SuperBlock) SetNext(n SuperBlock) {
	mk.StoreAddress(b.addr().Add(offNext), n.addr())
}

// SizeClass is fixed for a block's entire lifetime, chosen at Init.
func (b SuperBlock) SizeClass() sizeclass.Class {
	return sizeclass.Class(mk.LoadByte(b.addr().Add(offSizeClass)))
}
func (b SuperBlock) setSizeClass(c sizeclass.Class) {
	mk.StoreByte(b.addr().Add(offSizeClass), byte(c))
}

// Group is the fullness-group index (0..4) this block currently sits
// in within its owner's BlockList.
func (b SuperBlock) Group() uint8     { return mk.LoadByte(b.addr().Add(offGroup)) }
func (b SuperBlock) SetGroup(g uint8) { mk.StoreByte(b.addr().Add(offGroup), g) }

func (b SuperBlock) headCell() mk.Address { return mk.LoadAddress(b.addr().Add(offHeadCell)) }
func (b SuperBlock) setHeadCell(c mk.Address) {
	mk.StoreAddress(b.addr().Add(offHeadCell), c)
}

// Owner is the Pool this block currently belongs to. Every Pool that
// can appear here is either the process-wide global pool (held alive
// by the HoardSpace singleton) or a thread's local pool (held alive by
// its Mutator for the life of the thread), so storing the raw
// address in off-heap memory is safe: the Pool is never collectible
// while the owning structure (HoardSpace/Mutator) is reachable,
// and Go's garbage collector never moves heap objects.
func (b SuperBlock) Owner() *Pool {
	return (*Pool)(unsafe.Pointer(mk.LoadUintptr(b.addr().Add(offOwner))))
}
func (b SuperBlock) SetOwner(p *Pool) {
	mk.StoreUintptr(b.addr().Add(offOwner), uintptr(unsafe.Pointer(p)))
}

// IsOwnedBy reports whether b currently belongs to p.
func (b SuperBlock) IsOwnedBy(p *Pool) bool { return b.Owner() == p }

// Init sets up a freshly acquired block as empty, owned by owner, and
// fixed to size class sc for the rest of its life.
func (b SuperBlock) Init(owner *Pool, sc sizeclass.Class) {
	b.setBumpCursor(uint32(alignUp(headerBytes, sc.Bytes())))
	b.setUsedBytes(0)
	b.SetPrev(0)
	b.SetNext(0)
	b.setSizeClass(sc)
	b.SetGroup(0)
	b.setHeadCell(0)
	b.SetOwner(owner)
}

// IsEmpty reports whether b has no live cells.
func (b SuperBlock) IsEmpty() bool { return b.UsedBytes() == 0 }

// IsFull reports whether b can satisfy no further AllocCell call: the
// bump cursor has run off the end of the block and the LIFO free list
// is empty.
func (b SuperBlock) IsFull() bool {
	return uintptr(b.bumpCursor()) >= blockBytes && b.headCell().IsZero()
}

// AllocCell hands out one cell: the LIFO free list first, falling back
// to bumping the cursor.
func (b SuperBlock) AllocCell() (mk.Address, bool) {
	scBytes := b.SizeClass().Bytes()
	if head := b.headCell(); !head.IsZero() {
		b.setHeadCell(mk.LoadAddress(head))
		b.setUsedBytes(b.UsedBytes() + scBytes)
		return head, true
	}
	cursor := uintptr(b.bumpCursor())
	if cursor+scBytes > blockBytes {
		return 0, false
	}
	cell := b.addr().Add(cursor)
	b.setBumpCursor(uint32(cursor + scBytes))
	b.setUsedBytes(b.UsedBytes() + scBytes)
	return cell, true
}

// FreeCell returns cell to b's LIFO free list.
func (b SuperBlock) FreeCell(cell mk.Address) {
	mk.StoreAddress(cell, b.headCell())
	b.setHeadCell(cell)
	b.setUsedBytes(b.UsedBytes() - b.SizeClass().Bytes())
}

func alignUp(n, align uintptr) uintptr {
	mask := align - 1
	return (n + mask) &^ mask
}
