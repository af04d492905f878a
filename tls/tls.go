// Package tls implements the per-OS-thread mutator slot every exported
// malloc entry point reads from, spec.md §4.5 ("Mutator TLS"). Grounded
// on original_source/mallockit/src/mutator.rs's non-macOS path: a
// #[thread_local] static plus a pthread_key_t whose destructor fires on
// thread exit.
package tls

/*
#include <pthread.h>
#include <stdint.h>

extern void mallockitThreadExit(uintptr_t);

static __thread uintptr_t mallockit_slot = 0;
static pthread_key_t mallockit_tls_key;
static pthread_once_t mallockit_tls_once = PTHREAD_ONCE_INIT;

// mallockit_dtor is the pthread_key_t destructor. Its argument is just
// the non-null sentinel pthread_setspecific was given to arm it — the
// real value lives in the __thread variable, which the destructor
// reads directly.
static void mallockit_dtor(void *arg) {
    uintptr_t h = mallockit_slot;
    if (h != 0) {
        mallockit_slot = 0;
        mallockitThreadExit(h);
    }
}

static void mallockit_tls_init_once(void) {
    pthread_key_create(&mallockit_tls_key, mallockit_dtor);
}

static uintptr_t mallockit_tls_get(void) {
    return mallockit_slot;
}

// mallockit_tls_set stores h in this thread's slot, arming the
// destructor (once, lazily) the first time a thread ever populates it.
static void mallockit_tls_set(uintptr_t h) {
    if (mallockit_slot == 0 && h != 0) {
        pthread_once(&mallockit_tls_once, mallockit_tls_init_once);
        pthread_setspecific(mallockit_tls_key, (void*)1);
    }
    mallockit_slot = h;
}
*/
import "C"

import (
	"runtime/cgo"
)

// teardownable is implemented by the entry[M] wrapper stored behind
// every Handle, letting mallockitThreadExit run a mutator's spec.md §5
// thread-exit teardown (for Hoard: draining its TLAB and flushing its
// local pool) without knowing M's concrete type: the exported
// C function naming mallockitThreadExit is shared by every Slot[M]
// instantiation a process links in, so it cannot itself be generic.
type teardownable interface {
	teardown()
}

// entry is the value actually parked behind a Handle: the mutator plus
// the teardown closure (if any) the Slot was built with.
type entry[M any] struct {
	value  M
	onExit func(M)
}

func (e *entry[M]) teardown() {
	if e.onExit != nil {
		e.onExit(e.value)
	}
}

// mallockitThreadExit is called from mallockit_dtor when a thread that
// ever populated its slot exits. It runs the mutator's teardown (if
// the Slot was given one) before releasing the Handle, so its mutator
// becomes collectible only after its state has been returned to the
// shared pools.
//
//export mallockitThreadExit
func mallockitThreadExit(h C.uintptr_t) {
	handle := cgo.Handle(h)
	if td, ok := handle.Value().(teardownable); ok {
		td.teardown()
	}
	handle.Delete()
}

// Slot holds one mutator value of type M per OS thread. The value is
// stored behind a runtime/cgo.Handle rather than as a raw Go pointer:
// handing C-owned storage (the __thread variable) an ordinary Go
// pointer would violate cgo's pointer-passing rules, since the
// pthread_key_t destructor machinery can observe it long after the Go
// call that wrote it returns. A Handle is an opaque integer the Go
// runtime itself keeps the referenced value alive for until Delete is
// called, so it is safe to park in C memory.
type Slot[M any] struct {
	newMutator func() M
	teardown   func(M)
}

// NewSlot creates a slot that calls newMutator to build a thread's
// first mutator on demand. teardown, if non-nil, runs once when the
// thread that built a given mutator exits (spec.md §5's "Thread
// lifecycle"); plans with nothing to flush back (Bump, Buddy) pass
// nil.
func NewSlot[M any](newMutator func() M, teardown func(M)) *Slot[M] {
	return &Slot[M]{newMutator: newMutator, teardown: teardown}
}

// Current returns the calling OS thread's mutator, constructing and
// registering one via newMutator the first time this slot is touched
// on this thread.
func (s *Slot[M]) Current() M {
	if h := uintptr(C.mallockit_tls_get()); h != 0 {
		return cgo.Handle(h).Value().(*entry[M]).value
	}
	e := &entry[M]{value: s.newMutator(), onExit: s.teardown}
	h := cgo.NewHandle(e)
	C.mallockit_tls_set(C.uintptr_t(h))
	return e.value
}
