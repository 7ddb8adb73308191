package diag

import (
	"fmt"
)

// TruncationHelp tells users how to see diagnostics dropped by a Bag cap.
const TruncationHelp = "raise max_diagnostics in tsderive.toml or pass --max-diagnostics"

// Bag accumulates diagnostics in emission order. Unlike a hard-capped buffer
// it keeps everything and applies the cap in Capped, so the caller can report
// how many entries were dropped.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag whose Capped view keeps at most max entries.
// max == 0 means no diagnostics are reported at all.
func NewBag(max int) *Bag {
	if max < 0 {
		max = 0
	}
	return &Bag{max: max}
}

func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) AddAll(ds []Diagnostic) {
	b.items = append(b.items, ds...)
}

func (b *Bag) Cap() int {
	return b.max
}

func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether any collected diagnostic is an error, including
// ones that Capped would drop.
func (b *Bag) HasErrors() bool {
	return HasErrors(b.items)
}

// Items returns the uncapped diagnostics. Do not modify the returned slice.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Capped applies the per-file limit:
//   - max == 0: nothing is reported;
//   - len <= max: everything is reported;
//   - otherwise the first max-1 entries are kept and one Warning noting the
//     truncation is appended, so the result has exactly max entries.
func (b *Bag) Capped() []Diagnostic {
	return Truncate(b.items, b.max)
}

// Truncate is Capped for a plain slice.
func Truncate(items []Diagnostic, max int) []Diagnostic {
	if max <= 0 {
		return []Diagnostic{}
	}
	if len(items) <= max {
		out := make([]Diagnostic, len(items))
		copy(out, items)
		return out
	}
	out := make([]Diagnostic, 0, max)
	out = append(out, items[:max-1]...)
	dropped := len(items) - (max - 1)
	out = append(out, New(SevWarning, DiagnosticsTruncated,
		fmt.Sprintf("%d more diagnostics not shown (limit is %d per file)", dropped, max)).
		WithHelp(TruncationHelp))
	return out
}
