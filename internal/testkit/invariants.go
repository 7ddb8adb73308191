// Package testkit holds structural checks shared by tests and fuzzers.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"tsderive/internal/lower"
	"tsderive/internal/source"
)

// CheckLowered runs the span invariants every Lowerer must keep:
// 1) declaration spans are non-empty, inside src, ordered and disjoint
// 2) a body span, when present, lies inside its declaration
// 3) member spans lie inside the body
// 4) marker spans lie inside src and end no later than their declaration
func CheckLowered(f *lower.File, src string) error {
	if f == nil {
		return fmt.Errorf("nil file")
	}
	size, err := safecast.Conv[uint32](len(src))
	if err != nil {
		return fmt.Errorf("source length overflow: %w", err)
	}
	inside := func(sp source.Span) bool { return sp.Valid() && sp.End <= size }

	var prev *lower.Decl
	for i, d := range f.Decls {
		if d == nil {
			return fmt.Errorf("decl #%d is nil", i)
		}
		if d.Span.Empty() || !inside(d.Span) {
			return fmt.Errorf("decl %q: bad span %v (source is %d bytes)", d.Name, d.Span, size)
		}
		if prev != nil && d.Span.Start < prev.Span.End {
			return fmt.Errorf("decl %q %v overlaps or precedes %q %v", d.Name, d.Span, prev.Name, prev.Span)
		}
		prev = d

		if !d.BodySpan.Empty() && !d.Span.Contains(d.BodySpan) {
			return fmt.Errorf("decl %q: body %v outside %v", d.Name, d.BodySpan, d.Span)
		}
		if d.HasBody() {
			for _, fl := range d.Fields {
				if !d.BodySpan.Contains(fl.Span) {
					return fmt.Errorf("decl %q: field %q %v outside body %v", d.Name, fl.Name, fl.Span, d.BodySpan)
				}
			}
			for _, m := range d.Methods {
				if !d.BodySpan.Contains(m.Span) {
					return fmt.Errorf("decl %q: method %q %v outside body %v", d.Name, m.Name, m.Span, d.BodySpan)
				}
			}
		}
		for _, m := range d.Markers {
			if !inside(m.Span) || m.Span.End > d.Span.End {
				return fmt.Errorf("decl %q: marker %q has bad span %v", d.Name, m.Name, m.Span)
			}
		}
	}
	return nil
}
