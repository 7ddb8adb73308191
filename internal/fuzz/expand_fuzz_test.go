package fuzztests

import (
	"context"
	"errors"
	"testing"

	"tsderive/internal/builtin"
	"tsderive/internal/expand"
	"tsderive/internal/lower"
	"tsderive/internal/macro"
	"tsderive/internal/patch"
	"tsderive/internal/source"
	"tsderive/internal/testkit"
)

func FuzzParseMarkers(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		text := string(clampSeed(input))
		carrier := source.MustSpan(0, len(text))
		for _, m := range lower.ParseMarkers(text, carrier) {
			if m.Span != carrier {
				t.Fatalf("marker %q span %v, want carrier %v", m.Name, m.Span, carrier)
			}
			names, _ := lower.ParseMacroNames(m)
			for _, n := range names {
				if n == "" {
					t.Fatalf("empty macro name from %q", m.Args)
				}
			}
		}
	})
}

func FuzzPatchApply(f *testing.F) {
	f.Add("class A {}", uint16(9), uint16(9), "x")
	f.Add("abcdef", uint16(1), uint16(4), "")
	f.Add("", uint16(0), uint16(0), "first")
	f.Fuzz(func(t *testing.T, src string, a, b uint16, code string) {
		start, end := min(a, b), max(a, b)
		p := patch.Replace(source.Span{Start: uint32(start), End: uint32(end)}, code)
		out, err := patch.Apply(src, []patch.Patch{p, p})
		if err != nil {
			if !errors.Is(err, patch.ErrRange) {
				t.Fatalf("unexpected error: %v", err)
			}
			if int(end) <= len(src) {
				t.Fatalf("in-range patch rejected: %v", err)
			}
			return
		}
		if want := src[:start] + code + src[end:]; out != want {
			t.Fatalf("Apply = %q, want %q", out, want)
		}
	})
}

func FuzzExpand(f *testing.F) {
	addCorpusSeeds(f)
	reg := macro.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		f.Fatal(err)
	}
	pipeline := expand.New(macro.NewDispatcher(reg), lower.NewTreeSitter(), expand.DefaultOptions())

	f.Fuzz(func(t *testing.T, input []byte) {
		src := string(clampSeed(input))

		lowered, err := lower.NewTreeSitter().Lower(context.Background(), src, "fuzz.ts")
		if err == nil {
			if err := testkit.CheckLowered(lowered, src); err != nil {
				t.Fatalf("lowering invariant: %v", err)
			}
		}

		res, err := pipeline.Expand(context.Background(), src, "fuzz.ts")
		if err != nil {
			return
		}
		if !res.Changed && res.Code != src {
			t.Fatalf("unchanged result differs from input")
		}
		if len(res.Diagnostics) > expand.DefaultMaxDiagnostics {
			t.Fatalf("diagnostics not capped: %d", len(res.Diagnostics))
		}
	})
}
