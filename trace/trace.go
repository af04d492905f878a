// Package trace provides the allocator's diagnostic logging: a single
// boolean gate plus a printf-style writer, the same shape
// cznic/memory uses ("if trace { fmt.Fprintf(os.Stderr, ...) }")
// rather than a structured logging library. No allocator in this
// module's lineage pulls in a logging package for this purpose, so
// this stays on fmt+os deliberately (see DESIGN.md).
package trace

import (
	"fmt"
	"os"
)

// Enabled gates every call to Logf. It is read once at process start
// from MALLOCKIT_TRACE (any non-empty value enables it); tests may
// flip it directly.
var Enabled = os.Getenv("MALLOCKIT_TRACE") != ""

// Logf writes a trace line to stderr if Enabled is true. Call sites
// look like:
//
//	trace.Logf("malloc(%#x) -> %s", size, ptr)
func Logf(format string, args ...any) {
	if !Enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "mallockit: "+format+"\n", args...)
}
