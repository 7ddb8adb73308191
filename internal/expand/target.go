package expand

import (
	"sort"

	"tsderive/internal/lower"
	"tsderive/internal/source"
)

// Target is a declaration with a well-formed `@derive(...)` marker.
type Target struct {
	// MacroNames in the order they were written.
	MacroNames []string
	// Marker is the span of the carrier holding the marker; it is deleted
	// from the output.
	Marker source.Span
	Decl   *lower.Decl
}

// hasDeriveMarker reports whether any declaration carries a derive marker,
// well-formed or not.
func hasDeriveMarker(f *lower.File) bool {
	for _, d := range f.Decls {
		if _, ok := d.Marker(lower.DeriveName); ok {
			return true
		}
	}
	return false
}

// ScanTargets returns the derive targets of f in source order. Declarations
// whose marker has a malformed or empty argument list are skipped.
func ScanTargets(f *lower.File) []Target {
	var out []Target
	for _, d := range f.Decls {
		m, ok := d.Marker(lower.DeriveName)
		if !ok {
			continue
		}
		names, ok := lower.ParseMacroNames(m)
		if !ok {
			continue
		}
		out = append(out, Target{MacroNames: names, Marker: m.Span, Decl: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Decl.Span.Start < out[j].Decl.Span.Start
	})
	return out
}
