package mallockit

// PageSize identifies one of the three supported page granularities.
// Concrete zero-sized types below implement it so Page[S] can be
// parameterized over the granularity at compile time, the way the
// Rust original parameterizes Page<S: PageSize>.
type PageSize interface {
	LogBytes() uint
}

// Size4K is the base 4 KiB page granularity.
type Size4K struct{}

// Size2M is the huge-page granularity.
type Size2M struct{}

// Size1G is the gigantic-page granularity, reserved for future use.
type Size1G struct{}

func (Size4K) LogBytes() uint { return 12 }
func (Size2M) LogBytes() uint { return 21 }
func (Size1G) LogBytes() uint { return 30 }

// Bytes returns 1<<S.LogBytes() for the zero value of S.
func Bytes[S PageSize]() uintptr {
	var s S
	return 1 << s.LogBytes()
}

// LogBytes returns S.LogBytes() for the zero value of S.
func LogBytes[S PageSize]() uint {
	var s S
	return s.LogBytes()
}

// Page is a page-aligned address at a particular page granularity.
type Page[S PageSize] struct {
	start Address
}

// NewPage wraps addr as a Page[S]. addr must already be aligned to S's
// granularity; callers that are not sure should use PageContaining.
func NewPage[S PageSize](addr Address) Page[S] {
	return Page[S]{start: addr}
}

// PageContaining returns the S-aligned page containing addr.
func PageContaining[S PageSize](addr Address) Page[S] {
	return Page[S]{start: addr.AlignDown(Bytes[S]())}
}

// Start returns the page's base address.
func (p Page[S]) Start() Address { return p.start }

// End returns the address one byte past the end of the page.
func (p Page[S]) End() Address { return p.start.Add(Bytes[S]()) }

// Add returns the page n pages forward (or backward, for negative n).
func (p Page[S]) Add(n int) Page[S] {
	return Page[S]{start: p.start.Add(uintptr(n) * Bytes[S]())}
}

// PageRange is a half-open [Start, End) run of pages, the Go rendition
// of the Rust original's Range<Page<S>>.
type PageRange[S PageSize] struct {
	Start, End Page[S]
}

// Count returns the number of pages in the range.
func (r PageRange[S]) Count() int {
	return int(r.End.start.Diff(r.Start.start) >> LogBytes[S]())
}
