package source

import (
	"fmt"

	"fortio.org/safecast"
)

// Span is a half-open byte interval [Start, End) into one text buffer.
// Spans produced during expansion always address the original, unpatched source.
type Span struct {
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

// NewSpan builds a span from int offsets, failing on negative or inverted input.
func NewSpan(start, end int) (Span, error) {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		return Span{}, fmt.Errorf("span start %d: %w", start, err)
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		return Span{}, fmt.Errorf("span end %d: %w", end, err)
	}
	if e < s {
		return Span{}, fmt.Errorf("span end %d before start %d", end, start)
	}
	return Span{Start: s, End: e}, nil
}

// MustSpan is NewSpan for offsets known to be valid (tests, constants).
func MustSpan(start, end int) Span {
	sp, err := NewSpan(start, end)
	if err != nil {
		panic(err)
	}
	return sp
}

// Point returns the zero-length span at off.
func Point(off uint32) Span {
	return Span{Start: off, End: off}
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Valid reports whether Start <= End.
func (s Span) Valid() bool {
	return s.Start <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Overlaps uses half-open semantics: a and b are disjoint when a.End <= b.Start
// or b.End <= a.Start. Two insertion points at the same offset are disjoint.
func (s Span) Overlaps(other Span) bool {
	if s.End <= other.Start || other.End <= s.Start {
		return false
	}
	return true
}

// Contains reports whether other lies entirely inside s.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

func (s Span) Cover(other Span) Span {
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// ShiftLeft moves the span n bytes towards the start. Shifting past zero
// returns the span unchanged.
func (s Span) ShiftLeft(n uint32) Span {
	if n > s.Start {
		return s
	}
	return Span{
		Start: s.Start - n,
		End:   s.End - n,
	}
}

func (s Span) ShiftRight(n uint32) Span {
	return Span{
		Start: s.Start + n,
		End:   s.End + n,
	}
}

// Text returns the slice of src covered by s, clamped to src bounds.
func (s Span) Text(src string) string {
	n := uint32(len(src))
	start, end := s.Start, s.End
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		return ""
	}
	return src[start:end]
}
