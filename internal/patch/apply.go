package patch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrOverlap is returned when two distinct patches touch overlapping spans.
	ErrOverlap = errors.New("overlapping patches")
	// ErrRange is returned when a patch addresses bytes outside the source.
	ErrRange = errors.New("patch span out of range")
)

// OverlapError names the two conflicting patches.
type OverlapError struct {
	First  Patch
	Second Patch
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping patches: %s and %s", e.First, e.Second)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// RangeError reports a patch outside [0, len(src)] or with an inverted span.
type RangeError struct {
	Patch Patch
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("patch %s out of range for %d-byte source", e.Patch, e.Len)
}

func (e *RangeError) Unwrap() error { return ErrRange }

// Apply rewrites src with patches. It is all-or-nothing: on error the
// returned string is empty and src is untouched.
//
// Algorithm:
//  1. Dedup patches identical in (kind, span, code); the first occurrence stays.
//  2. Stable-sort by start offset. Patches sharing a start keep accumulation
//     order, so inserts at one point appear in the order they were collected.
//  3. Reject any pair of overlapping spans (half-open semantics).
//  4. Apply right to left.
func Apply(src string, patches []Patch) (string, error) {
	if len(patches) == 0 {
		return src, nil
	}

	ordered := Normalize(patches)
	if err := validate(src, ordered); err != nil {
		return "", err
	}

	// Walking right to left keeps every remaining span valid; equal starts are
	// only possible for inserts (or an insert before a range), and applying
	// the later one first leaves the earlier one leftmost.
	out := src
	for i := len(ordered) - 1; i >= 0; i-- {
		p := ordered[i]
		out = out[:p.Span.Start] + p.replacement() + out[p.Span.End:]
	}
	return out, nil
}

// Normalize returns the deduplicated patches in application order without
// touching the input slice.
func Normalize(patches []Patch) []Patch {
	seen := make(map[Patch]struct{}, len(patches))
	out := make([]Patch, 0, len(patches))
	for _, p := range patches {
		if p.Kind == KindDelete {
			p.Code = ""
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.Start != out[j].Span.Start {
			return out[i].Span.Start < out[j].Span.Start
		}
		// an insert at the start of a range goes before the range
		return out[i].Span.Empty() && !out[j].Span.Empty()
	})
	return out
}

// validate expects patches sorted by start. Since every span starts at or
// after its predecessor, checking neighbours against the furthest end seen so
// far is enough to find any overlapping pair.
func validate(src string, sorted []Patch) error {
	n := uint32(len(src))
	if len(src) > int(^uint32(0)) {
		return fmt.Errorf("source too large: %d bytes", len(src))
	}

	reach := -1
	for i, p := range sorted {
		if !p.Span.Valid() || p.Span.End > n {
			return &RangeError{Patch: p, Len: len(src)}
		}
		if reach >= 0 && sorted[reach].Span.Overlaps(p.Span) {
			return &OverlapError{First: sorted[reach], Second: p}
		}
		if reach < 0 || p.Span.End > sorted[reach].Span.End {
			reach = i
		}
	}
	return nil
}

// Preview renders patches one per line in application order.
func Preview(src string, patches []Patch) string {
	var b strings.Builder
	for i, p := range Normalize(patches) {
		if i > 0 {
			b.WriteByte('\n')
		}
		old := p.Span.Text(src)
		fmt.Fprintf(&b, "%s %s: %q -> %q", p.Kind, p.Span, old, p.replacement())
	}
	return b.String()
}
