package sizeclass

import (
	"testing"

	"github.com/stretchr/testify/require"

	mk "github.com/cznic/mallockit"
)

func TestFromBytesRoundTrip(t *testing.T) {
	for _, bytes := range []uintptr{16, 32, 64, 1024, 65536} {
		c := FromBytes(bytes)
		require.Equal(t, bytes, c.Bytes())
	}
}

func TestFromLayoutRoundsUp(t *testing.T) {
	c := FromLayout(mk.NewLayout(24, 8))
	require.Equal(t, uintptr(32), c.Bytes())

	c = FromLayout(mk.NewLayout(1, 1))
	require.Equal(t, uintptr(16), c.Bytes(), "below LogCoverage rounds up to the smallest class")
}
