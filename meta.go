package mallockit

import "sync"

// metaChunkBytes is the unit the meta allocator maps from the OS: 2 MiB,
// matching the Rust original's meta_space chunk size.
const metaChunkBytes = 2 << 20

// MetaAllocator is a tiny bump allocator that maps its own anonymous
// pages directly via RawMemory and never goes through a Plan's
// malloc/free path. Every internal container in this module (page
// table nodes, free-list cells for the page resource, pool
// bookkeeping) is allocated through it, the Go rendition of
// original_source/mallockit/src/space/meta/meta_allocator.rs's
// "avoid reentrancy into the interposed malloc" discipline.
//
// Unlike ordinary Go allocation, memory handed out here is invisible
// to the garbage collector: callers hold it only as a raw Address and
// are responsible for its lifetime. It is never released back to the
// OS; metadata overhead is small and permanent for the life of the
// process, matching the source's own design (there is no Free in the
// original meta allocator either).
type MetaAllocator struct {
	mu    sync.Mutex
	top   Address
	limit Address
}

var metaAlloc MetaAllocator

// Alloc returns size bytes aligned to align (a power of two <=
// metaChunkBytes), mapping fresh chunks from the OS as needed.
func (m *MetaAllocator) Alloc(size, align uintptr) Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := m.top.AlignUp(align)
	if start.Add(size) > m.limit {
		chunk := size
		if chunk < metaChunkBytes {
			chunk = metaChunkBytes
		}
		chunk = Address(0).AlignUp(4096).Add(chunk).AlignUp(4096).Diff(0)
		base, err := (RawMemory{}).ReserveAnywhere(chunk)
		if err != nil {
			panic("mallockit: meta allocator out of memory: " + err.Error())
		}
		if err := (RawMemory{}).Map(base, chunk); err != nil {
			panic("mallockit: meta allocator map failed: " + err.Error())
		}
		m.top = base
		m.limit = base.Add(chunk)
		start = m.top.AlignUp(align)
	}
	m.top = start.Add(size)
	return start
}

// MetaAlloc allocates size bytes aligned to align from the process-wide
// meta allocator.
func MetaAlloc(size, align uintptr) Address {
	return metaAlloc.Alloc(size, align)
}
