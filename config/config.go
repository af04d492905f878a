// Package config reads the handful of environment variables that
// adjust allocator behavior at process start, spec.md §4.2 (THP) and
// §0 (plan selection). There is no file or flag-based configuration
// surface anywhere in this system's lineage, so os.Getenv/strconv is
// the whole of it — adding a config file parser or flag library would
// have nothing to parse (see DESIGN.md).
package config

import (
	"os"
	"strconv"
)

// TransparentHugePages reports whether MALLOCKIT_THP requests
// transparent huge page hints on >=2 MiB mappings (spec.md §4.2).
// Defaults to false: THP changes measured throughput and RSS in ways a
// preloaded allocator should only opt into explicitly.
func TransparentHugePages() bool {
	v, ok := os.LookupEnv("MALLOCKIT_THP")
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return enabled
}

// Plan names the allocator plan to export, read from MALLOC (the
// convention LD_PRELOAD=libmallockit_$MALLOC.so style builds use to
// pick a cmd/ binary at build time; at runtime it is mostly useful for
// logging/diagnostics since the plan is actually fixed by which
// cmd/<plan> binary was preloaded).
func Plan() string {
	if v := os.Getenv("MALLOC"); v != "" {
		return v
	}
	return "hoard"
}
