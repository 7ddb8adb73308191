package diag

import (
	"fmt"
	"testing"

	"tsderive/internal/source"
)

func fill(b *Bag, n int) {
	for i := range n {
		b.Add(NewError(MacroNotFound, source.MustSpan(i, i+1), fmt.Sprintf("d%d", i)))
	}
}

func TestBag_CappedTruncatesWithWarning(t *testing.T) {
	b := NewBag(3)
	fill(b, 5)

	got := b.Capped()
	if len(got) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(got))
	}
	if got[0].Message != "d0" || got[1].Message != "d1" {
		t.Fatalf("unexpected leading entries: %q, %q", got[0].Message, got[1].Message)
	}
	last := got[2]
	if last.Severity != SevWarning || last.Code != DiagnosticsTruncated {
		t.Fatalf("last entry should be truncation warning, got %+v", last)
	}
	if last.Help != TruncationHelp {
		t.Fatalf("help = %q", last.Help)
	}
	if b.Len() != 5 {
		t.Fatalf("Capped must not mutate the bag, len = %d", b.Len())
	}
}

func TestBag_CappedZeroDropsEverything(t *testing.T) {
	b := NewBag(0)
	fill(b, 4)
	if got := b.Capped(); len(got) != 0 {
		t.Fatalf("expected no diagnostics, got %d", len(got))
	}
	if !b.HasErrors() {
		t.Fatalf("HasErrors should see uncapped items")
	}
}

func TestBag_CappedWithinLimit(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		count int
	}{
		{name: "empty", max: 3, count: 0},
		{name: "below", max: 3, count: 2},
		{name: "exactly", max: 3, count: 3},
		{name: "one", max: 1, count: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBag(tt.max)
			fill(b, tt.count)
			got := b.Capped()
			if len(got) != tt.count {
				t.Fatalf("expected %d, got %d", tt.count, len(got))
			}
			for _, d := range got {
				if d.Code == DiagnosticsTruncated {
					t.Fatalf("unexpected truncation warning")
				}
			}
		})
	}
}

func TestTruncate_MaxOne(t *testing.T) {
	b := NewBag(1)
	fill(b, 2)
	got := b.Capped()
	if len(got) != 1 || got[0].Code != DiagnosticsTruncated {
		t.Fatalf("expected single truncation warning, got %+v", got)
	}
}

func TestFormatShort(t *testing.T) {
	file := source.NewFile("src/a.ts", "a\nbc\n")
	diags := []Diagnostic{
		NewError(MacroNotFound, source.MustSpan(3, 4), "macro `Foo`\nnot found").WithHelp("register it"),
		New(SevWarning, DiagnosticsTruncated, "cut"),
	}
	want := "error MAC1001 src/a.ts:2:2 macro `Foo` not found\n" +
		"  help: register it\n" +
		"warning PIP4001 src/a.ts:0:0 cut"
	if got := FormatShort(diags, file, true); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}
