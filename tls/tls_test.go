package tls

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

type testMutator struct{ id int }

func TestSlotCachesPerThreadValue(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	next := 0
	slot := NewSlot(func() *testMutator {
		next++
		return &testMutator{id: next}
	}, nil)

	first := slot.Current()
	second := slot.Current()
	require.Same(t, first, second, "repeated Current calls on the same thread must return the same mutator")
}

func TestSlotConstructsLazily(t *testing.T) {
	constructed := false
	slot := NewSlot(func() *testMutator {
		constructed = true
		return &testMutator{id: 1}
	}, nil)
	require.False(t, constructed)
	slot.Current()
	require.True(t, constructed)
}

func TestEntryTeardownInvokesOnExitWithValue(t *testing.T) {
	m := &testMutator{id: 7}
	var got *testMutator
	e := &entry[*testMutator]{value: m, onExit: func(v *testMutator) { got = v }}

	e.teardown()

	require.Same(t, m, got)
}

func TestEntryTeardownToleratesNilOnExit(t *testing.T) {
	e := &entry[*testMutator]{value: &testMutator{id: 1}}
	require.NotPanics(t, e.teardown)
}
