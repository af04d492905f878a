package hoard

import (
	"runtime"
	"sync/atomic"
)

// spinMutex busy-waits with runtime.Gosched() between attempts instead
// of parking the goroutine, the Go rendition of the Rust original's
// spin::Mutex<_, Yield> (spec.md §5: "Per-pool-and-size-class spin
// mutex with yield-on-contention"). No example repo in this module's
// lineage carries a spin-with-yield lock — sync.Mutex parks rather
// than spins — so this one narrow mechanism is hand-rolled over
// sync/atomic rather than grounded on a pack dependency; recorded in
// DESIGN.md.
type spinMutex struct {
	locked atomic.Bool
}

func (m *spinMutex) Lock() {
	for !m.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (m *spinMutex) Unlock() {
	m.locked.Store(false)
}
