package expand

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tsderive/internal/diag"
	"tsderive/internal/lower"
	"tsderive/internal/macro"
	"tsderive/internal/patch"
	"tsderive/internal/source"
)

// fakeLowerer finds `/** ... */` comments directly followed by
// `class Name { ... }` and nothing else. It stands in for tree-sitter so
// these tests only exercise the pipeline.
type fakeLowerer struct {
	calls int
}

func (f *fakeLowerer) Lower(_ context.Context, src, fileName string) (*lower.File, error) {
	f.calls++
	file := &lower.File{Name: fileName}
	off := 0
	for {
		i := strings.Index(src[off:], "class ")
		if i < 0 {
			return file, nil
		}
		start := off + i
		open := start + strings.IndexByte(src[start:], '{')
		closeIdx := open + strings.IndexByte(src[open:], '}')
		decl := &lower.Decl{
			Kind:     lower.DeclClass,
			Name:     strings.TrimSpace(src[start+len("class ") : open]),
			Span:     source.MustSpan(start, closeIdx+1),
			BodySpan: source.MustSpan(open, closeIdx+1),
		}
		before := strings.TrimRight(src[:start], " \n")
		if strings.HasSuffix(before, "*/") {
			cstart := strings.LastIndex(before, "/**")
			carrier := source.MustSpan(cstart, len(before))
			decl.Markers = lower.ParseMarkers(src[cstart:len(before)], carrier)
		}
		file.Decls = append(file.Decls, decl)
		off = closeIdx + 1
	}
}

// recorder logs every call as "Decl:Macro".
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) macro(name string, fn func(in *macro.Input) macro.Result) macro.Macro {
	return &macro.Func{MacroName: name, Fn: func(_ context.Context, in *macro.Input) macro.Result {
		r.mu.Lock()
		r.calls = append(r.calls, in.Name()+":"+name)
		r.mu.Unlock()
		if fn == nil {
			return macro.Result{}
		}
		return fn(in)
	}}
}

func newPipeline(t *testing.T, opts Options, ms ...macro.Macro) (*Pipeline, *fakeLowerer) {
	t.Helper()
	reg := macro.NewRegistry()
	for _, m := range ms {
		if err := reg.Register(macro.DefaultModule, m.Name(), m); err != nil {
			t.Fatal(err)
		}
	}
	lw := &fakeLowerer{}
	return New(macro.NewDispatcher(reg), lw, opts), lw
}

func insertMember(member string) func(in *macro.Input) macro.Result {
	return func(in *macro.Input) macro.Result {
		p, _ := in.InsertIntoBody(member)
		return macro.Result{RuntimePatches: []patch.Patch{p}}
	}
}

func TestNoMarkerIsUnchanged(t *testing.T) {
	inputs := []string{
		"",
		"class Foo {}",
		"// derive(Debug)\nclass Foo {}",
		"const s = \"@deriv\";",
	}
	for _, src := range inputs {
		p, lw := newPipeline(t, DefaultOptions())
		res, err := p.Expand(context.Background(), src, "a.ts")
		if err != nil {
			t.Fatal(err)
		}
		if res.Changed || res.Code != src || len(res.Diagnostics) != 0 {
			t.Fatalf("expected unchanged for %q, got %+v", src, res)
		}
		if lw.calls != 0 {
			t.Fatalf("lowerer called for %q", src)
		}
	}
}

func TestMarkerOnlyInProseIsUnchanged(t *testing.T) {
	src := "const doc = \"use @derive(Debug) on classes\";\nclass Foo {}"
	p, lw := newPipeline(t, DefaultOptions())
	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.Code != src {
		t.Fatalf("expected unchanged, got %+v", res)
	}
	if lw.calls != 1 {
		t.Fatalf("lowerer calls = %d, want 1", lw.calls)
	}
}

func TestCallCountAndOrder(t *testing.T) {
	src := "/** @derive(A, B, C) */\nclass One {}\n/** @derive(A, B, C) */\nclass Two {}\n/** @derive(A, B, C) */\nclass Three {}\n"
	rec := &recorder{}
	p, _ := newPipeline(t, DefaultOptions(), rec.macro("A", nil), rec.macro("B", nil), rec.macro("C", nil))

	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"One:A", "One:B", "One:C",
		"Two:A", "Two:B", "Two:C",
		"Three:A", "Three:B", "Three:C",
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Fatalf("dispatch order (-want +got):\n%s", diff)
	}
	if res.Dispatches != 9 {
		t.Fatalf("Dispatches = %d, want 9", res.Dispatches)
	}
	if strings.Contains(res.Code, "@derive") {
		t.Fatalf("marker left in output:\n%s", res.Code)
	}
	if want := "\nclass One {}\n\nclass Two {}\n\nclass Three {}\n"; res.Code != want {
		t.Fatalf("code = %q, want %q", res.Code, want)
	}
}

func TestSamePointInsertsKeepMacroOrder(t *testing.T) {
	src := "/** @derive(A, B) */\nclass Foo {}"
	rec := &recorder{}
	p, _ := newPipeline(t, DefaultOptions(),
		rec.macro("A", insertMember(" a();")),
		rec.macro("B", insertMember(" b();")))

	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if want := "\nclass Foo { a(); b();}"; res.Code != want {
		t.Fatalf("code = %q, want %q", res.Code, want)
	}
}

func TestDeterminism(t *testing.T) {
	src := "/** @derive(A, Missing) */\nclass Foo {}\n/** @derive(A) */\nclass Bar {}"
	rec := &recorder{}
	a := rec.macro("A", func(in *macro.Input) macro.Result {
		p, _ := in.InsertIntoBody(" id = \"" + in.Name() + "\";")
		return macro.Result{
			RuntimePatches: []patch.Patch{p},
			Diagnostics:    []diag.Diagnostic{in.Warnf(diag.MacroUserError, "derived %s", in.Name())},
		}
	})
	p, _ := newPipeline(t, DefaultOptions(), a)

	first, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Result{}, "Timings")); diff != "" {
		t.Fatalf("expansion not deterministic (-first +second):\n%s", diff)
	}
	if len(first.Diagnostics) != 3 {
		t.Fatalf("diagnostics = %d, want 3", len(first.Diagnostics))
	}
}

func TestFailureContainment(t *testing.T) {
	src := "/** @derive(Boom, Good) */\nclass One {}\n/** @derive(Good) */\nclass Two {}"
	rec := &recorder{}
	boom := &macro.Func{MacroName: "Boom", Fn: func(context.Context, *macro.Input) macro.Result {
		panic("boom")
	}}
	p, _ := newPipeline(t, DefaultOptions(), boom, rec.macro("Good", insertMember(" ok();")))

	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want exactly one", res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Severity != diag.SevError || !strings.Contains(d.Message, "boom") {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
	if want := "\nclass One { ok();}\n\nclass Two { ok();}"; res.Code != want {
		t.Fatalf("code = %q, want %q", res.Code, want)
	}
	if diff := cmp.Diff([]string{"One:Good", "Two:Good"}, rec.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}

func TestDiagnosticsCap(t *testing.T) {
	src := "/** @derive(M1, M2, M3, M4, M5) */\nclass Foo {}"
	tests := []struct {
		max      int
		wantLen  int
		wantLast diag.Code
	}{
		{max: 3, wantLen: 3, wantLast: diag.DiagnosticsTruncated},
		{max: 5, wantLen: 5, wantLast: diag.MacroNotFound},
		{max: 10, wantLen: 5, wantLast: diag.MacroNotFound},
		{max: 0, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("max=%d", tt.max), func(t *testing.T) {
			opts := DefaultOptions()
			opts.MaxDiagnostics = tt.max
			p, _ := newPipeline(t, opts)
			res, err := p.Expand(context.Background(), src, "a.ts")
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Diagnostics) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(res.Diagnostics), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			last := res.Diagnostics[len(res.Diagnostics)-1]
			if last.Code != tt.wantLast {
				t.Fatalf("last code = %s, want %s", last.Code.ID(), tt.wantLast.ID())
			}
			if last.Code == diag.DiagnosticsTruncated && last.Severity != diag.SevWarning {
				t.Fatalf("truncation entry should be a warning: %+v", last)
			}
		})
	}
}

func TestOverlapIsFileFatal(t *testing.T) {
	src := "/** @derive(X, Y) */\nclass Foo { a: number; }"
	replace := func(code string) func(in *macro.Input) macro.Result {
		return func(in *macro.Input) macro.Result {
			body := in.Decl.BodySpan
			return macro.Result{RuntimePatches: []patch.Patch{
				patch.Replace(source.Span{Start: body.Start + 1, End: body.End - 1}, code),
			}}
		}
	}
	rec := &recorder{}
	p, _ := newPipeline(t, DefaultOptions(), rec.macro("X", replace(" x ")), rec.macro("Y", replace(" y ")))

	res, err := p.Expand(context.Background(), src, "a.ts")
	if !errors.Is(err, patch.ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
}

func TestIdenticalPatchesCollapse(t *testing.T) {
	src := "/** @derive(X, Y) */\nclass Foo {}"
	rec := &recorder{}
	same := insertMember(" same();")
	p, _ := newPipeline(t, DefaultOptions(), rec.macro("X", same), rec.macro("Y", same))

	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if want := "\nclass Foo { same();}"; res.Code != want {
		t.Fatalf("code = %q, want %q", res.Code, want)
	}
}

func TestMalformedMarkerSkipped(t *testing.T) {
	src := "/** @derive() */\nclass A {}\n/** @derive(1x) */\nclass B {}\n/** @derive(Ok) */\nclass C {}"
	rec := &recorder{}
	p, _ := newPipeline(t, DefaultOptions(), rec.macro("Ok", nil))

	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"C:Ok"}, rec.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("malformed markers should not be reported: %+v", res.Diagnostics)
	}
	if !strings.Contains(res.Code, "@derive()") {
		t.Fatalf("skipped marker should stay in place:\n%s", res.Code)
	}
}

func TestTypeOutput(t *testing.T) {
	src := "/** @derive(T) */\nclass Foo {}"
	rec := &recorder{}
	typed := rec.macro("T", func(in *macro.Input) macro.Result {
		p, _ := in.InsertIntoBody(" t(): void;")
		return macro.Result{TypePatches: []patch.Patch{p}}
	})

	p, _ := newPipeline(t, DefaultOptions(), typed)
	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if res.TypeOutput == nil || *res.TypeOutput != "\nclass Foo { t(): void;}" {
		t.Fatalf("unexpected type output: %v", res.TypeOutput)
	}

	plain, _ := newPipeline(t, DefaultOptions(), rec.macro("T", nil))
	res, err = plain.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if res.TypeOutput != nil {
		t.Fatalf("type output without type patches: %q", *res.TypeOutput)
	}
}

func TestLowerErrorPropagates(t *testing.T) {
	boom := errors.New("parser exploded")
	lw := lower.LowererFunc(func(context.Context, string, string) (*lower.File, error) {
		return nil, boom
	})
	p := New(macro.NewDispatcher(macro.NewRegistry()), lw, DefaultOptions())
	_, err := p.Expand(context.Background(), "/** @derive(A) */ class A {}", "a.ts")
	if !errors.Is(err, boom) {
		t.Fatalf("expected lowering error, got %v", err)
	}
}

func TestTypeOutputOnSeparateBaseKeepsBase(t *testing.T) {
	src := "/** @derive(T) */\nclass Foo {}"
	base := "declare class Foo {}"
	typed := (&recorder{}).macro("T", func(in *macro.Input) macro.Result {
		return macro.Result{TypePatches: []patch.Patch{patch.Insert(uint32(len(base)-1), " t(): void;")}}
	})
	opts := DefaultOptions()
	opts.TypeBase = &base

	p, _ := newPipeline(t, opts, typed)
	res, err := p.Expand(context.Background(), src, "a.ts")
	if err != nil {
		t.Fatal(err)
	}
	if res.TypeOutput == nil || *res.TypeOutput != "declare class Foo { t(): void;}" {
		t.Fatalf("unexpected type output: %v", res.TypeOutput)
	}
}

func TestMarkerNameIsCaseInsensitive(t *testing.T) {
	tests := []string{
		"/** @Derive(Tag) */\nclass Foo {}",
		"/** @DERIVE(Tag) */\nclass Foo {}",
		"/** @derive(Tag) */\nclass Foo {}",
	}
	for _, src := range tests {
		rec := &recorder{}
		p, lw := newPipeline(t, DefaultOptions(), rec.macro("Tag", insertMember(" tag = 1;")))
		res, err := p.Expand(context.Background(), src, "a.ts")
		if err != nil {
			t.Fatal(err)
		}
		if lw.calls != 1 {
			t.Fatalf("%q: lowerer calls = %d, want 1", src, lw.calls)
		}
		if want := "\nclass Foo { tag = 1;}"; res.Code != want {
			t.Fatalf("%q: code = %q, want %q", src, res.Code, want)
		}
		if diff := cmp.Diff([]string{"Foo:Tag"}, rec.calls); diff != "" {
			t.Fatalf("calls (-want +got):\n%s", diff)
		}
	}
}
