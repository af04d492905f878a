// Package sizeclass implements the log-scale size classing spec.md
// §4.9 and the Hoard plan rely on: every allocation is rounded up to
// a power of two and bucketed into one of a small number of classes,
// grounded on original_source/mallockit/src/util/size_class.rs.
package sizeclass

import mk "github.com/cznic/mallockit"

// LogCoverage is log2 of the smallest size class's byte count: class 0
// covers 1<<LogCoverage = 16 bytes, matching spec.md's "16-byte
// granularity at class 0" and the source's default const generic
// parameter (LOG_COVERAGE: u8 = 4).
const LogCoverage = 4

// Class is a size class index: class k covers 1<<(k+LogCoverage)
// bytes.
type Class uint8

// Bytes returns the number of bytes class c covers.
func (c Class) Bytes() uintptr { return uintptr(1) << c.LogBytes() }

// LogBytes returns log2 of the number of bytes class c covers.
func (c Class) LogBytes() uint { return uint(c) + LogCoverage }

// FromBytes returns the class whose byte count is exactly bytes. bytes
// must already be a power of two no smaller than 1<<LogCoverage.
func FromBytes(bytes uintptr) Class {
	return Class(log2(bytes) - LogCoverage)
}

// FromLayout rounds layout up to its alignment and then to the next
// power of two (no smaller than 1<<LogCoverage), and returns the class
// covering the result. No header size is added before rounding.
func FromLayout(layout mk.Layout) Class {
	padded := layout.PadToAlign()
	size := roundupPow2(padded.Size)
	if size < uintptr(1)<<LogCoverage {
		size = uintptr(1) << LogCoverage
	}
	return FromBytes(size)
}

func log2(n uintptr) uint {
	var l uint
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

func roundupPow2(n uintptr) uintptr {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
